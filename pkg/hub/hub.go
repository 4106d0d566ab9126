package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Subscriber receives broadcast messages on its channel.
// The hub closes the channel when the subscriber is removed.
type Subscriber struct {
	send  chan Message
	added chan struct{}
}

// C returns the receive side of the subscriber's buffer.
func (s *Subscriber) C() <-chan Message {
	return s.send
}

// Hub tracks subscribers and broadcasts to them.
type Hub struct {
	name   string
	buffer int
	logger *slog.Logger

	subs map[*Subscriber]struct{}
	mu   sync.RWMutex

	inbox      chan Message
	register   chan *Subscriber
	unregister chan *Subscriber

	dropped atomic.Uint64
	running atomic.Bool
}

// New creates a hub. buffer is the per-subscriber queue depth.
func New(name string, buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		name:       name,
		buffer:     buffer,
		logger:     slog.Default().With("component", "hub", "hub", name),
		subs:       make(map[*Subscriber]struct{}),
		inbox:      make(chan Message, 64),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
	}
}

// Run owns the subscriber set until ctx ends, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subs {
				delete(h.subs, s)
				close(s.send)
			}
			h.mu.Unlock()
			return

		case s := <-h.register:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			n := len(h.subs)
			h.mu.Unlock()
			close(s.added)
			h.logger.Debug("subscriber connected", "subscribers", n)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.send)
			}
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber disconnected", "subscribers", n)

		case msg := <-h.inbox:
			h.mu.Lock()
			for s := range h.subs {
				select {
				case s.send <- msg:
				default:
					// Too slow to keep up.
					delete(h.subs, s)
					close(s.send)
					h.logger.Warn("dropped slow subscriber")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe adds a subscriber. It returns once the subscriber is in the set,
// so a broadcast made after it returns reaches the subscriber.
func (h *Hub) Subscribe(ctx context.Context) (*Subscriber, error) {
	s := &Subscriber{
		send:  make(chan Message, h.buffer),
		added: make(chan struct{}),
	}
	select {
	case h.register <- s:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	<-s.added
	return s, nil
}

// Unsubscribe removes s. Safe to call after the hub has stopped.
func (h *Hub) Unsubscribe(ctx context.Context, s *Subscriber) {
	select {
	case h.unregister <- s:
	case <-ctx.Done():
	}
}

// Broadcast queues msg for every subscriber without blocking.
// It reports false when the inbox was full and the message was dropped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case h.inbox <- msg:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

// BroadcastJSON encodes v and broadcasts it as text.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Text(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes.
func (h *Hub) BroadcastBinary(data []byte) bool {
	return h.Broadcast(Binary(data))
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many broadcasts were discarded because the inbox was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Running reports whether Run is active.
func (h *Hub) Running() bool {
	return h.running.Load()
}
