package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/genstudio/internal/domain"
)

// MockSettingsStore is an in-memory settings store for tests. It satisfies
// credential.BackupStore and registry.OverrideStore.
type MockSettingsStore struct {
	mu sync.Mutex

	// Backups is the stored list; nil means nothing was saved yet.
	Backups   []string
	Overrides map[domain.ModelTask]string

	// LoadErr and SaveErr, when set, are returned by the matching calls.
	LoadErr error
	SaveErr error

	// Call tracking for verification
	SaveBackupCalls   int
	SaveOverrideCalls int
}

// NewMockSettingsStore creates an empty MockSettingsStore.
func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{Overrides: make(map[domain.ModelTask]string)}
}

// LoadBackupCredentials implements credential.BackupStore.
func (m *MockSettingsStore) LoadBackupCredentials(ctx context.Context) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, false, m.LoadErr
	}
	out := make([]string, len(m.Backups))
	copy(out, m.Backups)
	return out, m.Backups != nil, nil
}

// SaveBackupCredentials implements credential.BackupStore.
func (m *MockSettingsStore) SaveBackupCredentials(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveBackupCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Backups = append([]string{}, keys...)
	return nil
}

// LoadModelOverrides implements registry.OverrideStore.
func (m *MockSettingsStore) LoadModelOverrides(ctx context.Context) (map[domain.ModelTask]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	out := make(map[domain.ModelTask]string, len(m.Overrides))
	for k, v := range m.Overrides {
		out[k] = v
	}
	return out, nil
}

// SaveModelOverrides implements registry.OverrideStore.
func (m *MockSettingsStore) SaveModelOverrides(ctx context.Context, overrides map[domain.ModelTask]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveOverrideCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Overrides = make(map[domain.ModelTask]string, len(overrides))
	for k, v := range overrides {
		m.Overrides[k] = v
	}
	return nil
}
