package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/genstudio/internal/credential"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/registry"
)

// CredentialPool is the part of *credential.Pool the settings use case
// needs.
type CredentialPool interface {
	ReplaceBackups(ctx context.Context, keys []string) error
	Backups() []string
	Labels() []string
	Position() int
	Size() int
}

// ModelTable is the part of *registry.Registry the settings use case
// needs.
type ModelTable interface {
	Update(ctx context.Context, partial map[domain.ModelTask]string) error
	Snapshot() map[domain.ModelTask]string
}

// ClientCache drops cached remote clients. *gemini.ClientFactory
// implements it.
type ClientCache interface {
	Forget(keep ...string)
}

// CredentialStatus describes the pool without revealing any secret.
type CredentialStatus struct {
	Labels   []string `json:"labels"`
	Position int      `json:"position"`
	Current  string   `json:"current,omitempty"`
	Total    int      `json:"total"`
}

// SettingsService edits runtime configuration.
type SettingsService struct {
	pool    CredentialPool
	models  ModelTable
	clients ClientCache
	primary string
	logger  *slog.Logger
}

// NewSettingsService creates a SettingsService. primary is the configured
// primary secret; it is only used to keep its cached client alive when
// the backups change. clients may be nil.
func NewSettingsService(
	pool CredentialPool,
	models ModelTable,
	clients ClientCache,
	primary string,
	logger *slog.Logger,
) (*SettingsService, error) {
	if pool == nil || models == nil {
		return nil, fmt.Errorf("%w: credential pool and model table are required", ErrMissingDependency)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}
	return &SettingsService{
		pool:    pool,
		models:  models,
		clients: clients,
		primary: primary,
		logger:  logger.With("component", "settings_service"),
	}, nil
}

// ReplaceBackups swaps in a new backup credential list and resets
// rotation to the primary. Cached clients for removed secrets are
// dropped.
func (s *SettingsService) ReplaceBackups(ctx context.Context, keys []string) (CredentialStatus, error) {
	if err := s.pool.ReplaceBackups(ctx, keys); err != nil {
		if errors.Is(err, credential.ErrTooManyBackups) {
			return CredentialStatus{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return CredentialStatus{}, err
	}

	if s.clients != nil {
		keep := s.pool.Backups()
		if s.primary != "" {
			keep = append(keep, s.primary)
		}
		s.clients.Forget(keep...)
	}

	status := s.CredentialStatus()
	s.logger.InfoContext(ctx, "backup credentials replaced", "total", status.Total)
	return status, nil
}

// CredentialStatus reports the configured credentials by label and where
// rotation currently points.
func (s *SettingsService) CredentialStatus() CredentialStatus {
	labels := s.pool.Labels()
	status := CredentialStatus{
		Labels:   labels,
		Position: s.pool.Position(),
		Total:    s.pool.Size(),
	}

	// Labels are in rotation order; without a primary the first slot
	// already resolves to backup[0].
	idx := status.Position
	if s.primary == "" && idx > 0 {
		idx--
	}
	if idx >= 0 && idx < len(labels) {
		status.Current = labels[idx]
	}
	return status
}

// Models returns the effective model for every task.
func (s *SettingsService) Models() map[domain.ModelTask]string {
	return s.models.Snapshot()
}

// UpdateModels merges partial into the overrides. An empty model id
// restores the default for that task.
func (s *SettingsService) UpdateModels(ctx context.Context, partial map[domain.ModelTask]string) (map[domain.ModelTask]string, error) {
	if len(partial) == 0 {
		return nil, fmt.Errorf("%w: no model changes given", ErrInvalidInput)
	}
	if err := s.models.Update(ctx, partial); err != nil {
		if errors.Is(err, registry.ErrUnknownTask) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	return s.models.Snapshot(), nil
}
