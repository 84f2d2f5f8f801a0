package wsrelay

import (
	"encoding/json"
	"fmt"
)

// MessageType represents the relay wire message types
type MessageType string

const (
	TypeConnect     MessageType = "connect"
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
	TypeDisconnect  MessageType = "disconnect"
	TypeMessage     MessageType = "message"
	TypeAck         MessageType = "ack"
	TypeError       MessageType = "error"
)

// MessageID is a per-connection message identifier. The wire schema allows
// either a JSON number or a JSON string; the raw form is preserved verbatim
// so acknowledgments echo exactly what the client sent.
type MessageID struct {
	raw json.RawMessage
}

// NumberID returns a numeric MessageID.
func NumberID(n int64) MessageID {
	b, _ := json.Marshal(n)
	return MessageID{raw: b}
}

// StringID returns a string MessageID.
func StringID(s string) MessageID {
	b, _ := json.Marshal(s)
	return MessageID{raw: b}
}

// IsZero reports whether the ID is absent.
func (id MessageID) IsZero() bool {
	return len(id.raw) == 0
}

// String returns the raw JSON form of the ID, for logging.
func (id MessageID) String() string {
	if len(id.raw) == 0 {
		return "<none>"
	}
	return string(id.raw)
}

// MarshalJSON implements json.Marshaler.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler. Only numbers and strings are
// accepted, per the wire schema.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.raw = nil
		return nil
	}
	if len(data) == 0 {
		return fmt.Errorf("empty messageID")
	}
	switch c := data[0]; {
	case c == '"', c == '-', c >= '0' && c <= '9':
		id.raw = append(id.raw[:0], data...)
		return nil
	}
	return fmt.Errorf("messageID must be a number or string: %s", data)
}

// Message is the relay wire unit.
//
// messageID is unique within a connection's lifetime only; it is never a
// global deduplication key. roomID is required for room-scoped types,
// connectionID only appears on the initial connect, and the message body is
// opaque to the relay beyond forwarding.
type Message struct {
	ID           MessageID       `json:"messageID,omitzero"`
	Type         MessageType     `json:"type"`
	RoomID       string          `json:"roomID,omitempty"`
	ConnectionID string          `json:"connectionID,omitempty"`
	Body         json.RawMessage `json:"message,omitempty"`
}

// Encode encodes a message to its JSON wire form.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// DecodeMessage decodes a message from its JSON wire form.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &m, nil
}

// ackMessage builds the reply acknowledging a parsed inbound message.
func ackMessage(id MessageID) *Message {
	return &Message{Type: TypeAck, ID: id}
}

// errorMessage builds a structured error reply.
func errorMessage(text string) *Message {
	body, _ := json.Marshal(text)
	return &Message{Type: TypeError, Body: body}
}
