// Package hub fans messages out to websocket subscribers over channels.
//
// One goroutine (Run) owns the subscriber set. Publishers never block:
// a full inbox drops the message and a full subscriber is disconnected.
package hub

// MessageType selects the websocket frame type.
type MessageType int

const (
	// TextMessage carries JSON.
	TextMessage MessageType = iota
	// BinaryMessage carries raw bytes such as JPEG views.
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// Binary wraps raw bytes.
func Binary(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
