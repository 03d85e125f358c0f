package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/platform/logger"
	"github.com/phrazzld/genstudio/internal/store"
)

const jobColumns = `id, status, model, prompt, aspect_ratio, operation, result_ref, asset_id, error, created_at, updated_at`

// JobStore implements store.JobStore on the generation_jobs table.
type JobStore struct {
	db store.DBTX
}

var _ store.JobStore = (*JobStore)(nil)

// NewJobStore creates a JobStore.
func NewJobStore(db store.DBTX) *JobStore {
	return &JobStore{db: db}
}

// SaveJob implements store.JobStore. Rows already in a terminal status
// are not updated, so a write that loses a race with cancellation cannot
// bring a job back.
func (s *JobStore) SaveJob(ctx context.Context, job domain.JobSnapshot) error {
	if job.ID == uuid.Nil {
		return fmt.Errorf("%w: job ID cannot be empty", store.ErrInvalidEntity)
	}
	if !job.Status.IsValid() {
		return fmt.Errorf("%w: invalid job status %q", store.ErrInvalidEntity, job.Status)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			model = excluded.model,
			operation = excluded.operation,
			result_ref = excluded.result_ref,
			asset_id = excluded.asset_id,
			error = excluded.error,
			updated_at = excluded.updated_at
		WHERE generation_jobs.status NOT IN ($12, $13, $14)
	`,
		job.ID.String(),
		string(job.Status),
		job.Model,
		job.Prompt,
		string(job.AspectRatio),
		job.Operation,
		job.ResultRef,
		job.AssetID,
		job.Error,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
		string(domain.JobStatusCompleted),
		string(domain.JobStatusFailed),
		string(domain.JobStatusCancelled),
	)
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to save job",
			"job_id", job.ID,
			"status", job.Status,
			"error", err)
		return store.NewStoreError("job", "save", "failed to save job", MapError(err))
	}

	return nil
}

// GetJob implements store.JobStore.
func (s *JobStore) GetJob(ctx context.Context, id uuid.UUID) (domain.JobSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id.String())

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JobSnapshot{}, store.ErrJobNotFound
	}
	if err != nil {
		return domain.JobSnapshot{}, store.NewStoreError("job", "get", "failed to read job", MapError(err))
	}
	return job, nil
}

// ListJobsByStatus implements store.JobStore.
func (s *JobStore) ListJobsByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.JobSnapshot, error) {
	if len(statuses) == 0 {
		return []domain.JobSnapshot{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		WHERE status IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, store.NewStoreError("job", "list", "failed to query jobs", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	jobs := []domain.JobSnapshot{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, store.NewStoreError("job", "list", "failed to scan job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "list", "failed to read jobs", err)
	}

	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.JobSnapshot, error) {
	var (
		job                  domain.JobSnapshot
		id, status, aspect   string
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&id, &status, &job.Model, &job.Prompt, &aspect,
		&job.Operation, &job.ResultRef, &job.AssetID, &job.Error,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.JobSnapshot{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.JobSnapshot{}, fmt.Errorf("invalid job id %q: %w", id, err)
	}

	job.ID = parsed
	job.Status = domain.JobStatus(status)
	job.AspectRatio = domain.AspectRatio(aspect)
	job.CreatedAt = createdAt.UTC()
	job.UpdatedAt = updatedAt.UTC()
	return job, nil
}
