package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Bus delivers job events to its subscribers synchronously, in
// subscription order. A failing subscriber does not stop delivery to the
// ones after it.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]EventHandler
	order  []int
	nextID int
	logger *slog.Logger
}

var _ EventEmitter = (*Bus)(nil)

// NewBus creates a Bus with no subscribers.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]EventHandler),
		logger: logger.With("component", "job_event_bus"),
	}
}

// Subscribe adds h and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(h EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.order = append(b.order, id)
	b.logger.Debug("subscribed to job events", "subscribers", len(b.subs))

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// EmitEvent implements EventEmitter. The returned error joins every
// subscriber failure.
func (b *Bus) EmitEvent(ctx context.Context, event *JobEvent) error {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := h.HandleEvent(ctx, event); err != nil {
			b.logger.ErrorContext(ctx, "job event subscriber failed",
				"error", err,
				"subscriber", i,
				"event_id", event.ID,
				"job_id", event.Job.ID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoggingHandler writes every job event to a logger.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger.With("component", "job_events")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	level := slog.LevelInfo
	if event.Type == TypeFailed {
		level = slog.LevelWarn
	}

	h.logger.Log(ctx, level, "job status changed",
		"job_id", event.Job.ID,
		"from", event.Previous,
		"to", event.Job.Status,
		"model", event.Job.Model,
		"error", event.Job.Error)
	return nil
}
