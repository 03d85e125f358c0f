// Package registry maps logical generation tasks to concrete backend model
// identifiers. Compiled-in defaults can be replaced per task by persisted
// overrides; tasks without an override fall back to their default.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/phrazzld/genstudio/internal/domain"
)

// ErrUnknownTask is returned by Update for task keys the registry does
// not know.
var ErrUnknownTask = errors.New("unknown model task")

// DefaultModels returns the compiled-in model for every task.
func DefaultModels() map[domain.ModelTask]string {
	return map[domain.ModelTask]string{
		domain.TaskImage:        "imagen-4.0-generate-001",
		domain.TaskText:         "gemini-2.5-flash",
		domain.TaskFastVideo:    "veo-3.0-fast-generate-001",
		domain.TaskQualityVideo: "veo-3.0-generate-001",
		domain.TaskSpeech:       "gemini-2.5-flash-preview-tts",
	}
}

// OverrideStore persists the override table.
type OverrideStore interface {
	LoadModelOverrides(ctx context.Context) (map[domain.ModelTask]string, error)
	SaveModelOverrides(ctx context.Context, overrides map[domain.ModelTask]string) error
}

// Registry resolves model identifiers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	defaults  map[domain.ModelTask]string
	overrides map[domain.ModelTask]string
	store     OverrideStore
	logger    *slog.Logger
}

// New creates a registry. Entries in defaults replace the compiled-in
// default for that task (e.g. from configuration); missing tasks keep
// DefaultModels. The store may be nil.
func New(defaults map[domain.ModelTask]string, store OverrideStore, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	base := DefaultModels()
	for task, model := range defaults {
		if !task.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
		}
		if model = strings.TrimSpace(model); model != "" {
			base[task] = model
		}
	}

	return &Registry{
		defaults:  base,
		overrides: make(map[domain.ModelTask]string),
		store:     store,
		logger:    logger.With("component", "model_registry"),
	}, nil
}

// Load reads persisted overrides from the store. Unknown keys in storage
// are ignored so that a downgrade does not break startup.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	stored, err := r.store.LoadModelOverrides(ctx)
	if err != nil {
		return fmt.Errorf("failed to load model overrides: %w", err)
	}

	overrides := make(map[domain.ModelTask]string, len(stored))
	for task, model := range stored {
		if !task.IsValid() {
			r.logger.WarnContext(ctx, "ignoring override for unknown task", "task", task)
			continue
		}
		overrides[task] = model
	}

	r.mu.Lock()
	r.overrides = overrides
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "model overrides loaded", "override_count", len(overrides))
	return nil
}

// Get returns the override for task if present, else the default.
// An unknown task is a programming error and panics.
func (r *Registry) Get(task domain.ModelTask) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model, ok := r.overrides[task]; ok && model != "" {
		return model
	}
	model, ok := r.defaults[task]
	if !ok {
		panic(fmt.Sprintf("registry: unknown model task %q", task))
	}
	return model
}

// Update merges partial into the override table and persists the result.
// An empty model id removes the override for that task. If persisting
// fails the table is left unchanged.
func (r *Registry) Update(ctx context.Context, partial map[domain.ModelTask]string) error {
	for task := range partial {
		if !task.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownTask, task)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	merged := make(map[domain.ModelTask]string, len(r.overrides)+len(partial))
	for task, model := range r.overrides {
		merged[task] = model
	}
	for task, model := range partial {
		if model = strings.TrimSpace(model); model == "" {
			delete(merged, task)
		} else {
			merged[task] = model
		}
	}

	if r.store != nil {
		if err := r.store.SaveModelOverrides(ctx, merged); err != nil {
			r.logger.ErrorContext(ctx, "failed to persist model overrides", "error", err)
			return fmt.Errorf("failed to persist model overrides: %w", err)
		}
	}

	r.overrides = merged
	r.logger.InfoContext(ctx, "model overrides updated",
		"updated_tasks", len(partial),
		"override_count", len(merged))

	return nil
}

// Snapshot returns the effective model for every task.
func (r *Registry) Snapshot() map[domain.ModelTask]string {
	out := make(map[domain.ModelTask]string, len(domain.ModelTasks()))
	for _, task := range domain.ModelTasks() {
		out[task] = r.Get(task)
	}
	return out
}
