// Package queue carries domain events over RabbitMQ: a publisher used by the
// HTTP layer and a consumer that appends every event to an audit log.
package queue

import "time"

// Event names. They double as routing keys on the events exchange.
const (
	UserRegistered = "user.registered"
	UserUpdated    = "user.updated"
	UserDeleted    = "user.deleted"

	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
	ProductDeleted = "product.deleted"
)

// Event is published after a successful write. It carries identifiers only;
// consumers needing more detail read the primary database. Password material
// is never part of an event.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UserID     uint64    `json:"user_id,omitempty"`
	ProductID  uint64    `json:"product_id,omitempty"`
	ActorID    uint64    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
