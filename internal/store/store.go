package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/domain"
)

// SettingsStore persists the key-value configuration surface.
// It satisfies credential.BackupStore and registry.OverrideStore.
type SettingsStore interface {
	// LoadBackupCredentials returns the stored backup list. stored is
	// false when no list was ever saved, which is distinct from a saved
	// empty list.
	LoadBackupCredentials(ctx context.Context) (keys []string, stored bool, err error)

	// SaveBackupCredentials replaces the stored backup list.
	SaveBackupCredentials(ctx context.Context, keys []string) error

	// LoadModelOverrides returns the stored task → model overrides.
	LoadModelOverrides(ctx context.Context) (map[domain.ModelTask]string, error)

	// SaveModelOverrides replaces the stored overrides.
	SaveModelOverrides(ctx context.Context, overrides map[domain.ModelTask]string) error
}

// JobStore persists video job snapshots.
type JobStore interface {
	// SaveJob inserts or updates a job by ID. A job already stored in a
	// terminal status is left unchanged.
	SaveJob(ctx context.Context, job domain.JobSnapshot) error

	// GetJob returns a job by ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, id uuid.UUID) (domain.JobSnapshot, error)

	// ListJobsByStatus returns the jobs whose status is one of statuses,
	// oldest first.
	ListJobsByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.JobSnapshot, error)
}
