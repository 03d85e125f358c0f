package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a generation job
type JobStatus string

// Possible job status values
const (
	JobStatusIdle        JobStatus = "idle"
	JobStatusSubmitting  JobStatus = "submitting"
	JobStatusPolling     JobStatus = "polling"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition can occur from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusIdle, JobStatusSubmitting, JobStatusPolling, JobStatusDownloading,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// jobTransitions lists the statuses reachable from each non-terminal status.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusIdle:        {JobStatusSubmitting, JobStatusCancelled},
	JobStatusSubmitting:  {JobStatusPolling, JobStatusFailed, JobStatusCancelled},
	JobStatusPolling:     {JobStatusPolling, JobStatusDownloading, JobStatusFailed, JobStatusCancelled},
	JobStatusDownloading: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
}

// CanTransition reports whether a job in status from may move to status to.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition if from → to is not allowed.
func ValidateTransition(from, to JobStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// JobSnapshot is a point-in-time copy of a generation job, suitable for
// persistence and for reporting to callers.
type JobSnapshot struct {
	ID          uuid.UUID   `json:"id"`
	Status      JobStatus   `json:"status"`
	Model       string      `json:"model"`
	Prompt      string      `json:"prompt"`
	AspectRatio AspectRatio `json:"aspect_ratio"`
	Operation   string      `json:"operation,omitempty"`
	ResultRef   string      `json:"result_ref,omitempty"`
	AssetID     string      `json:"asset_id,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
