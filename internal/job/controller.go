package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/asset"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/events"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/platform/clock"
	"github.com/phrazzld/genstudio/internal/platform/logger"
	"github.com/phrazzld/genstudio/internal/redact"
	"github.com/phrazzld/genstudio/internal/store"
)

// DefaultPollInterval is the delay between status checks.
const DefaultPollInterval = 10 * time.Second

// defaultVideoMIMEType is used when the backend does not report one.
const defaultVideoMIMEType = "video/mp4"

var (
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrShuttingDown is returned by Submit after Shutdown.
	ErrShuttingDown = errors.New("job controller is shutting down")
)

// Runner executes one unit of remote work with retry and credential
// rotation. *generation.Executor implements it.
type Runner interface {
	Do(ctx context.Context, work generation.Work) error
}

// ModelSource resolves the model for a task. *registry.Registry
// implements it.
type ModelSource interface {
	Get(task domain.ModelTask) string
}

// VideoBackend performs single remote calls against the video service.
// Each method is one attempt with one credential.
type VideoBackend interface {
	// SubmitVideo starts a video job and returns its operation handle.
	SubmitVideo(ctx context.Context, cred domain.Credential, model string, req domain.VideoRequest) (string, error)

	// CheckVideo reports the status of an operation.
	CheckVideo(ctx context.Context, cred domain.Credential, operation string) (domain.OperationStatus, error)

	// FetchVideo downloads a finished video.
	FetchVideo(ctx context.Context, cred domain.Credential, ref string) (domain.Video, error)
}

// Config holds controller settings.
type Config struct {
	PollInterval time.Duration
}

// Option configures optional Controller collaborators.
type Option func(*Controller)

// WithEventEmitter publishes a JobEvent for every status change.
func WithEventEmitter(emitter events.EventEmitter) Option {
	return func(c *Controller) { c.emitter = emitter }
}

// WithJobStore persists every job transition.
func WithJobStore(s store.JobStore) Option {
	return func(c *Controller) { c.store = s }
}

// Controller runs video jobs.
type Controller struct {
	runner  Runner
	models  ModelSource
	backend VideoBackend
	assets  asset.Store
	clock   clock.Clock
	config  Config
	emitter events.EventEmitter
	store   store.JobStore
	logger  *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	jobs   map[uuid.UUID]*Job
	closed bool
}

// NewController creates a Controller.
func NewController(
	runner Runner,
	models ModelSource,
	backend VideoBackend,
	assets asset.Store,
	clk clock.Clock,
	config Config,
	logger *slog.Logger,
	opts ...Option,
) (*Controller, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if models == nil {
		return nil, errors.New("model source cannot be nil")
	}
	if backend == nil {
		return nil, errors.New("video backend cannot be nil")
	}
	if assets == nil {
		return nil, errors.New("asset store cannot be nil")
	}
	if clk == nil {
		return nil, errors.New("clock cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		runner:     runner,
		models:     models,
		backend:    backend,
		assets:     assets,
		clock:      clk,
		config:     config,
		logger:     logger.With("component", "job_controller"),
		baseCtx:    ctx,
		baseCancel: cancel,
		jobs:       make(map[uuid.UUID]*Job),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit starts a new job for req. It returns once the remote service
// accepted the job (status polling) or the submission failed (status
// failed, with the classified error also returned). Polling then
// continues in the background.
//
// If ctx ends while the submission is in flight the job is cancelled.
func (c *Controller) Submit(ctx context.Context, req domain.VideoRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrShuttingDown
	}
	j := c.newJob(req)
	c.jobs[j.snap.ID] = j
	c.mu.Unlock()

	c.record(j, "", j.Snapshot())

	stop := context.AfterFunc(ctx, func() { c.cancelJob(j, "caller context ended") })
	defer stop()

	model := c.models.Get(req.Quality.Task())
	if !c.advance(j, domain.JobStatusIdle, domain.JobStatusSubmitting, func(j *Job) {
		j.snap.Model = model
	}) {
		return j, nil
	}

	j.logger.InfoContext(j.ctx, "submitting video job",
		"model", model,
		"aspect_ratio", req.AspectRatio,
		"has_source_image", req.SourceImage != nil)

	var operation string
	err := c.runner.Do(j.ctx, func(ctx context.Context, cred domain.Credential) error {
		op, err := c.backend.SubmitVideo(ctx, cred, model, req)
		if err != nil {
			return err
		}
		if op == "" {
			return generation.NewError(generation.KindEmptyResult, "video submission returned no operation", nil)
		}
		operation = op
		return nil
	})
	if err != nil {
		c.fail(j, domain.JobStatusSubmitting, err)
		return j, err
	}

	c.advance(j, domain.JobStatusSubmitting, domain.JobStatusPolling, func(j *Job) {
		j.snap.Operation = operation
		c.scheduleLocked(j)
	})

	return j, nil
}

// Get returns a live job.
func (c *Controller) Get(id uuid.UUID) (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

// Lookup returns the state of a job, falling back to the job store for
// jobs that are no longer live.
func (c *Controller) Lookup(ctx context.Context, id uuid.UUID) (domain.JobSnapshot, error) {
	if j, err := c.Get(id); err == nil {
		return j.Snapshot(), nil
	}
	if c.store == nil {
		return domain.JobSnapshot{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	snap, err := c.store.GetJob(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.JobSnapshot{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return domain.JobSnapshot{}, err
	}
	return snap, nil
}

// Cancel stops a job. It is a no-op for jobs that are already terminal.
func (c *Controller) Cancel(id uuid.UUID) error {
	j, err := c.Get(id)
	if err != nil {
		return err
	}
	c.cancelJob(j, "cancelled by caller")
	return nil
}

// Discard cancels the job if it is still running, releases its video and
// forgets it. Later lookups fall back to the job store.
func (c *Controller) Discard(ctx context.Context, id uuid.UUID) error {
	j, err := c.Get(id)
	if err != nil {
		return err
	}
	c.cancelJob(j, "discarded by caller")

	c.mu.Lock()
	delete(c.jobs, id)
	c.mu.Unlock()

	return c.releaseHandle(ctx, j)
}

// Recover marks jobs that a previous process left running as cancelled,
// since nothing polls them any more. It returns how many were updated.
func (c *Controller) Recover(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}

	stale, err := c.store.ListJobsByStatus(ctx,
		domain.JobStatusIdle,
		domain.JobStatusSubmitting,
		domain.JobStatusPolling,
		domain.JobStatusDownloading)
	if err != nil {
		return 0, fmt.Errorf("failed to list unfinished jobs: %w", err)
	}

	for _, snap := range stale {
		previous := snap.Status
		snap.Status = domain.JobStatusCancelled
		snap.Error = "interrupted by restart"
		snap.UpdatedAt = c.clock.Now()

		if err := c.store.SaveJob(ctx, snap); err != nil {
			return 0, fmt.Errorf("failed to mark job %s cancelled: %w", snap.ID, err)
		}
		c.emit(ctx, previous, snap)
	}

	if len(stale) > 0 {
		c.logger.InfoContext(ctx, "cancelled jobs interrupted by restart", "count", len(stale))
	}
	return len(stale), nil
}

// Shutdown cancels every running job, releases every video still held
// for callers and rejects further submissions.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	jobs := make([]*Job, 0, len(c.jobs))
	for _, j := range c.jobs {
		jobs = append(jobs, j)
	}
	c.mu.Unlock()

	var errs []error
	for _, j := range jobs {
		c.cancelJob(j, "shutting down")
		if err := c.releaseHandle(ctx, j); err != nil {
			errs = append(errs, err)
		}
	}
	c.baseCancel()

	c.logger.InfoContext(ctx, "job controller stopped", "jobs", len(jobs))
	return errors.Join(errs...)
}

func (c *Controller) newJob(req domain.VideoRequest) *Job {
	id := uuid.New()
	now := c.clock.Now()
	jobLogger := c.logger.With("job_id", id)
	ctx, cancel := context.WithCancel(logger.WithContext(c.baseCtx, jobLogger))

	return &Job{
		snap: domain.JobSnapshot{
			ID:          id,
			Status:      domain.JobStatusIdle,
			Prompt:      req.Prompt,
			AspectRatio: req.AspectRatio,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: jobLogger,
	}
}

// poll runs one status check. It is the poll timer callback.
func (c *Controller) poll(j *Job) {
	j.mu.Lock()
	if j.snap.Status != domain.JobStatusPolling {
		j.mu.Unlock()
		return
	}
	j.timer = nil
	operation := j.snap.Operation
	j.mu.Unlock()

	var status domain.OperationStatus
	err := c.runner.Do(j.ctx, func(ctx context.Context, cred domain.Credential) error {
		s, err := c.backend.CheckVideo(ctx, cred, operation)
		if err != nil {
			return err
		}
		status = s
		return nil
	})
	if err != nil {
		c.fail(j, domain.JobStatusPolling, err)
		return
	}

	if !status.Done {
		c.advance(j, domain.JobStatusPolling, domain.JobStatusPolling, func(j *Job) {
			if status.Operation != "" {
				j.snap.Operation = status.Operation
			}
			c.scheduleLocked(j)
		})
		return
	}

	if status.ResultRef == "" {
		c.fail(j, domain.JobStatusPolling,
			generation.NewError(generation.KindEmptyResult, "video job finished without a result", nil))
		return
	}

	if !c.advance(j, domain.JobStatusPolling, domain.JobStatusDownloading, func(j *Job) {
		j.snap.ResultRef = status.ResultRef
	}) {
		return
	}

	c.download(j, status.ResultRef)
}

func (c *Controller) download(j *Job, ref string) {
	var video domain.Video
	err := c.runner.Do(j.ctx, func(ctx context.Context, cred domain.Credential) error {
		v, err := c.backend.FetchVideo(ctx, cred, ref)
		if err != nil {
			return err
		}
		if len(v.Bytes) == 0 {
			return generation.NewError(generation.KindEmptyResult, "downloaded video is empty", nil)
		}
		video = v
		return nil
	})
	if err != nil {
		c.fail(j, domain.JobStatusDownloading, err)
		return
	}

	if j.Status() != domain.JobStatusDownloading {
		return
	}

	mimeType := video.MIMEType
	if mimeType == "" {
		mimeType = defaultVideoMIMEType
	}

	handle, err := c.assets.Put(j.ctx, video.Bytes, mimeType)
	if err != nil {
		c.fail(j, domain.JobStatusDownloading, fmt.Errorf("failed to store video: %w", err))
		return
	}

	if !c.advance(j, domain.JobStatusDownloading, domain.JobStatusCompleted, func(j *Job) {
		j.handle = handle
		j.snap.AssetID = handle.ID()
	}) {
		ctx := context.WithoutCancel(j.ctx)
		if err := handle.Release(ctx); err != nil {
			j.logger.WarnContext(ctx, "failed to release video of cancelled job", "error", err)
		}
	}
}

// scheduleLocked arms the next poll tick. The caller must hold j.mu.
func (c *Controller) scheduleLocked(j *Job) {
	j.stopTimerLocked()
	j.timer = c.clock.AfterFunc(c.config.PollInterval, func() { c.poll(j) })
}

// advance moves j from one status to another and applies mutate under
// the job lock. It does nothing and returns false when j is no longer in
// from, which is how late results of cancelled jobs are discarded.
func (c *Controller) advance(j *Job, from, to domain.JobStatus, mutate func(*Job)) bool {
	j.mu.Lock()
	if j.snap.Status != from || !domain.CanTransition(from, to) {
		current := j.snap.Status
		j.mu.Unlock()
		j.logger.DebugContext(j.ctx, "discarding stale job update",
			"expected", from,
			"current", current,
			"target", to)
		return false
	}

	if mutate != nil {
		mutate(j)
	}
	j.snap.Status = to
	j.snap.UpdatedAt = c.clock.Now()
	terminal := to.IsTerminal()
	if terminal {
		j.stopTimerLocked()
		close(j.done)
	}
	snap := j.snap
	j.mu.Unlock()

	if terminal {
		j.cancel()
	}
	c.record(j, from, snap)
	return true
}

func (c *Controller) fail(j *Job, from domain.JobStatus, err error) {
	if c.advance(j, from, domain.JobStatusFailed, func(j *Job) {
		j.err = err
		j.snap.Error = redact.Error(err)
	}) {
		j.logger.WarnContext(j.ctx, "video job failed",
			"stage", from,
			"kind", generation.KindOf(err),
			"error", redact.Error(err))
	}
}

// cancelJob moves a non-terminal job to cancelled. It reports whether
// the job was running.
func (c *Controller) cancelJob(j *Job, reason string) bool {
	j.mu.Lock()
	if j.snap.Status.IsTerminal() {
		j.mu.Unlock()
		return false
	}

	previous := j.snap.Status
	j.stopTimerLocked()
	j.snap.Status = domain.JobStatusCancelled
	j.snap.UpdatedAt = c.clock.Now()
	close(j.done)
	snap := j.snap
	j.mu.Unlock()

	j.cancel()
	j.logger.InfoContext(j.ctx, "video job cancelled", "from", previous, "reason", reason)
	c.record(j, previous, snap)
	return true
}

func (c *Controller) releaseHandle(ctx context.Context, j *Job) error {
	j.mu.Lock()
	handle := j.handle
	j.handle = nil
	j.mu.Unlock()

	if handle == nil {
		return nil
	}
	if err := handle.Release(ctx); err != nil {
		return fmt.Errorf("failed to release video of job %s: %w", j.ID(), err)
	}
	return nil
}

// record persists snap and emits an event when the status changed.
func (c *Controller) record(j *Job, previous domain.JobStatus, snap domain.JobSnapshot) {
	ctx := context.WithoutCancel(j.ctx)

	if !snap.Status.IsTerminal() && j.Status().IsTerminal() {
		j.logger.DebugContext(ctx, "skipping stale job snapshot", "status", snap.Status)
		return
	}

	if c.store != nil {
		if err := c.store.SaveJob(ctx, snap); err != nil {
			j.logger.ErrorContext(ctx, "failed to persist job", "status", snap.Status, "error", err)
		}
	}

	if previous != "" && previous != snap.Status {
		c.emit(ctx, previous, snap)
	}
}

func (c *Controller) emit(ctx context.Context, previous domain.JobStatus, snap domain.JobSnapshot) {
	if c.emitter == nil {
		return
	}
	if err := c.emitter.EmitEvent(ctx, events.NewJobEvent(previous, snap, c.clock.Now())); err != nil {
		c.logger.WarnContext(ctx, "failed to emit job event", "job_id", snap.ID, "error", err)
	}
}
