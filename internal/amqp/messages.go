package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kaskelas/internal/store"
)

// ChangeMessage announces that a collection changed. It carries no row data;
// consumers reload what they need from the database.
type ChangeMessage struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	ID         string    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage converts a store change into a wire message.
func NewChangeMessage(c store.Change) *ChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{
		Collection: string(c.Collection),
		Op:         string(c.Op),
		ID:         c.ID,
		Timestamp:  ts,
	}
}

// Change converts the message back into a store change.
func (m *ChangeMessage) Change() store.Change {
	return store.Change{
		Collection: store.Collection(m.Collection),
		Op:         store.Op(m.Op),
		ID:         m.ID,
		At:         m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects unknown collections
// and operations.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch store.Collection(msg.Collection) {
	case store.Students, store.Payments, store.Transactions:
	default:
		return nil, fmt.Errorf("unknown collection %q", msg.Collection)
	}
	switch store.Op(msg.Op) {
	case store.OpInsert, store.OpUpdate, store.OpDelete:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Op)
	}
	return &msg, nil
}
