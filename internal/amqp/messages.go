package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names what changed in the ledger.
type Kind string

const (
	KindTransactionCreated Kind = "transaction.created"
	KindTransactionUpdated Kind = "transaction.updated"
	KindTransactionDeleted Kind = "transaction.deleted"
	KindBudgetChanged      Kind = "budget.changed"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTransactionCreated, KindTransactionUpdated, KindTransactionDeleted, KindBudgetChanged:
		return true
	default:
		return false
	}
}

// ChangeMessage announces a ledger write. It carries identifiers only; the
// consumer reads the current state from storage.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	UserID    string    `json:"user_id"`
	EntityID  string    `json:"entity_id,omitempty"`
	Month     string    `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage stamps a message with a fresh id and the current time.
func NewChangeMessage(kind Kind, userID, entityID, month string) *ChangeMessage {
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		EntityID:  entityID,
		Month:     month,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	if msg.UserID == "" || msg.Month == "" {
		return nil, fmt.Errorf("message %s: missing user or month", msg.ID)
	}
	return &msg, nil
}
