package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/store"
)

// MockJobStore is an in-memory store.JobStore for testing
type MockJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]domain.JobSnapshot

	// SaveErr, when set, is returned by SaveJob
	SaveErr error

	// History records every snapshot passed to SaveJob, in order
	History []domain.JobSnapshot
}

// NewMockJobStore creates an empty MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[uuid.UUID]domain.JobSnapshot)}
}

// SaveJob implements store.JobStore
func (m *MockJobStore) SaveJob(ctx context.Context, job domain.JobSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.History = append(m.History, job)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if prev, ok := m.jobs[job.ID]; ok && prev.Status.IsTerminal() {
		return nil
	}
	m.jobs[job.ID] = job
	return nil
}

// GetJob implements store.JobStore
func (m *MockJobStore) GetJob(ctx context.Context, id uuid.UUID) (domain.JobSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.JobSnapshot{}, store.ErrJobNotFound
	}
	return job, nil
}

// ListJobsByStatus implements store.JobStore
func (m *MockJobStore) ListJobsByStatus(
	ctx context.Context,
	statuses ...domain.JobStatus,
) ([]domain.JobSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[domain.JobStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var out []domain.JobSnapshot
	for _, job := range m.jobs {
		if want[job.Status] {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Statuses returns the status of every saved snapshot for id, in order
func (m *MockJobStore) Statuses(id uuid.UUID) []domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.JobStatus
	for _, job := range m.History {
		if job.ID == id {
			out = append(out, job.Status)
		}
	}
	return out
}
