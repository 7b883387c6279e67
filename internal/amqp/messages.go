package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ChangeMessage announces that one record of the cashbook changed. It only
// names the record: consumers read the current state from the store.
type ChangeMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Timestamp time.Time `json:"timestamp"`
}

var errMissingKind = errors.New("change message without kind")

// NewChangeMessage stamps a message with the current time.
func NewChangeMessage(kind, id, accountID string) *ChangeMessage {
	return &ChangeMessage{
		Kind:      kind,
		ID:        id,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON parses a delivery body. A body without a kind is
// rejected.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, errMissingKind
	}
	return &msg, nil
}
