package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/domain"
)

// Job event types.
const (
	TypeStatusChanged = "job.status_changed"
	TypeCompleted     = "job.completed"
	TypeFailed        = "job.failed"
	TypeCancelled     = "job.cancelled"
)

// JobEvent reports a status change of a video job.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Job is the job state after the change
	Job domain.JobSnapshot `json:"job"`

	// Previous is the status the job left
	Previous domain.JobStatus `json:"previous"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewJobEvent creates an event for a transition from previous to the
// snapshot's status. The type is derived from the new status.
func NewJobEvent(previous domain.JobStatus, snap domain.JobSnapshot, at time.Time) *JobEvent {
	return &JobEvent{
		ID:        uuid.New(),
		Type:      typeFor(snap.Status),
		Job:       snap,
		Previous:  previous,
		CreatedAt: at,
	}
}

func typeFor(status domain.JobStatus) string {
	switch status {
	case domain.JobStatusCompleted:
		return TypeCompleted
	case domain.JobStatusFailed:
		return TypeFailed
	case domain.JobStatusCancelled:
		return TypeCancelled
	default:
		return TypeStatusChanged
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *JobEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *JobEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the job controller to publish events without knowing its observers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobEvent) error
}
