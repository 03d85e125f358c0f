package job

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/asset"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/platform/clock"
)

// Job is one video generation request tracked by a Controller. All
// methods are safe for concurrent use.
type Job struct {
	mu     sync.Mutex
	snap   domain.JobSnapshot
	err    error
	timer  clock.Timer
	handle *asset.Handle

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// ID returns the job identifier.
func (j *Job) ID() uuid.UUID {
	return j.snap.ID
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() domain.JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap
}

// Status returns the current status.
func (j *Job) Status() domain.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.Status
}

// Err returns the terminal error of a failed job, or nil.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Handle returns the downloaded video of a completed job. It is nil
// before completion and after the controller discarded the job. The
// caller must not release it while the controller still tracks the job;
// use Controller.Discard instead.
func (j *Job) Handle() *asset.Handle {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.handle
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job is terminal or ctx ends. It returns the job
// error for failed jobs.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopTimerLocked cancels the pending poll tick. The caller must hold j.mu.
func (j *Job) stopTimerLocked() {
	if j.timer != nil {
		j.timer.Stop()
		j.timer = nil
	}
}
