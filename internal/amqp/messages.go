package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Op is the kind of mutation a ChangeEvent reports.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpRefresh asks the worker to recompute without a specific entity.
	OpRefresh Op = "refresh"
)

// ChangeEvent announces that farm data changed. It only carries a reference:
// the worker reloads whatever it needs from the database.
type ChangeEvent struct {
	MessageID string    `json:"message_id"`
	Entity    string    `json:"entity"`
	ID        int64     `json:"id"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(entity string, id int64, op Op) *ChangeEvent {
	return &ChangeEvent{
		MessageID: uuid.NewString(),
		Entity:    entity,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeEventFromJSON decodes and checks a message body.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case OpCreate, OpUpdate, OpDelete, OpRefresh:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	if msg.Op != OpRefresh && msg.Entity == "" {
		return nil, fmt.Errorf("missing entity for op %q", msg.Op)
	}
	return &msg, nil
}
