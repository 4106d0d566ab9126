package hub

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are only pongs and close frames.
	maxReadSize = 4096
)

// Serve pumps the hub's messages to conn until the peer disconnects or the
// hub stops. first, if non-nil, is written before any broadcast.
// It blocks; call it from the websocket handler.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, first *Message) {
	sub, err := h.Subscribe(ctx)
	if err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPump(conn)
	}()

	h.writePump(conn, sub, first, done)
	h.Unsubscribe(ctx, sub)
	conn.Close()
	<-done
}

// readPump drains the connection to process pongs and detect close.
func (h *Hub) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxReadSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on conn.
func (h *Hub) writePump(conn *websocket.Conn, sub *Subscriber, first *Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if first != nil && write(conn, *first) != nil {
		return
	}

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if write(conn, msg) != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func write(conn *websocket.Conn, msg Message) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	kind := websocket.TextMessage
	if msg.Type == BinaryMessage {
		kind = websocket.BinaryMessage
	}
	return conn.WriteMessage(kind, msg.Data)
}
