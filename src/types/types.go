package types

import (
	"context"
	"encoding/json"
)

// Wire event names exchanged with the broker.
const (
	EventJoin     = "join"
	EventLeave    = "leave"
	EventSend     = "send"
	EventMessage  = "message"
	EventPresence = "presence"
)

// Envelope is a single frame on the broker connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes payload as the envelope data.
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}

// Decode unmarshals the envelope data into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// IdentityPayload is carried by join and leave.
type IdentityPayload struct {
	Identity string `json:"identity"`
}

// Message is a chat or notification message. Recipient is empty for
// broadcasts.
type Message struct {
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Recipient string `json:"recipient,omitempty"`
}

// PresencePayload is the broker's list of everyone currently online.
type PresencePayload struct {
	Identities []string `json:"identities"`
}

// Conn abstracts a broker connection for testability.
type Conn interface {
	WriteJSON(ctx context.Context, v any) error
	ReadJSON(ctx context.Context, v any) error
	Close() error
}
