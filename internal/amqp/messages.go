package amqp

import (
	"time"

	"github.com/goccy/go-json"
)

// Entities that emit change events.
const (
	EntityUser        = "user"
	EntityTodo        = "todo"
	EntityTransaction = "transaction"
)

// Actions carried by change events.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
	ActionToggled = "toggled"
)

// ChangeEvent announces a write that has already been committed. It carries
// identifiers only; consumers read the row back if they need it.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(entity, action string, id, userID int64) ChangeEvent {
	return ChangeEvent{
		Entity:    entity,
		Action:    action,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey appends entity and action to the configured prefix, e.g.
// "dayplan.changes.todo.created".
func (e ChangeEvent) RoutingKey(prefix string) string {
	return prefix + "." + e.Entity + "." + e.Action
}

func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
