package domain

import "context"

// Event types published after successful writes.
const (
	UserRegistered = "user-registered"
	UserLoggedIn   = "user-logged-in"
	TaskCreated    = "task-created"
	TaskUpdated    = "task-updated"
	TaskDeleted    = "task-deleted"
)

const (
	EntityUser = "user"
	EntityTask = "task"
)

// Event is a domain event envelope.
type Event struct {
	Type       string `json:"type"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	UserID     string `json:"userId"`
	Timestamp  int64  `json:"timestamp"`
	Data       any    `json:"data,omitempty"`
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
