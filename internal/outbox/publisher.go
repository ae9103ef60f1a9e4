package outbox

import (
	"context"
	"errors"

	"example.com/mergington/internal/events"
)

// ErrQueueFull is returned when the dispatcher cannot accept another event.
var ErrQueueFull = errors.New("outbox queue full")

// Publisher accepts roster events for asynchronous delivery. Publish must not block.
type Publisher interface {
	Publish(ctx context.Context, evt events.RosterChanged) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, events.RosterChanged) error { return nil }
