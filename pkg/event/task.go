package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task is the message handed to the deferred execution backend. Workers
// resolve ListenerRef and call it with (EventType, Payload).
type Task struct {
	ID              uuid.UUID `json:"task_id"`
	ListenerRef     string    `json:"listener_ref"`
	EventType       EventType `json:"event_type"`
	EventID         uuid.UUID `json:"event_id"`
	Payload         Payload   `json:"payload"`
	Attempt         int       `json:"attempt"`
	RegistryVersion int       `json:"registry_version"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

// NewTask builds the task for running l against a logged event.
func NewTask(l Listener, eventType EventType, eventID uuid.UUID, payload Payload) Task {
	return Task{
		ID:              uuid.New(),
		ListenerRef:     l.Name(),
		EventType:       eventType,
		EventID:         eventID,
		Payload:         payload,
		RegistryVersion: RegistryVersion,
	}
}

// SyncToken is the outcome token returned by inline execution.
const SyncToken = "sync"

// Backend decides how and when a listener runs.
type Backend interface {
	// Execute runs or enqueues the listener and returns an outcome token:
	// SyncToken for inline execution, the task id for queued execution.
	Execute(ctx context.Context, l Listener, task Task) (string, error)

	// ReportError is invoked whenever a listener fails.
	ReportError(ctx context.Context, err error, task Task)
}

type ctxKey struct{}

// WithEventID marks ctx as running on behalf of the given event. Events
// published under this context record it as their parent.
func WithEventID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// EventIDFromContext returns the event currently being processed, if any.
func EventIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
