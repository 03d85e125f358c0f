package service_test

import (
	"context"
	"testing"

	"github.com/phrazzld/genstudio/internal/credential"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/registry"
	"github.com/phrazzld/genstudio/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceBackups(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key", "old-backup")
	f.pool.Rotate()
	cache := &recordingCache{}

	svc, err := service.NewSettingsService(f.pool, f.registry, cache, "primary-key", testLogger())
	require.NoError(t, err)

	status, err := svc.ReplaceBackups(context.Background(), []string{" new-a ", "", "new-b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"new-a", "new-b"}, f.store.Backups)
	assert.Equal(t, service.CredentialStatus{
		Labels:   []string{"primary", "backup[0]", "backup[1]"},
		Position: 0,
		Current:  "primary",
		Total:    3,
	}, status)
	require.Len(t, cache.kept, 1)
	assert.ElementsMatch(t, []string{"new-a", "new-b", "primary-key"}, cache.kept[0])
}

func TestReplaceBackupsTooMany(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	cache := &recordingCache{}
	svc, err := service.NewSettingsService(f.pool, f.registry, cache, "primary-key", testLogger())
	require.NoError(t, err)

	keys := make([]string, domain.MaxBackupCredentials+1)
	for i := range keys {
		keys[i] = "k"
	}

	_, err = svc.ReplaceBackups(context.Background(), keys)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, credential.ErrTooManyBackups)
	assert.Empty(t, cache.kept)
	assert.Zero(t, f.store.SaveBackupCalls)
}

func TestReplaceBackupsPersistFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key", "old-backup")
	f.store.SaveErr = assert.AnError
	svc, err := service.NewSettingsService(f.pool, f.registry, nil, "primary-key", testLogger())
	require.NoError(t, err)

	_, err = svc.ReplaceBackups(context.Background(), []string{"new"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, service.ErrInvalidInput)
	assert.Equal(t, []string{"old-backup"}, f.pool.Backups())
}

func TestCredentialStatusWithoutPrimary(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", "a", "b", "c")
	svc, err := service.NewSettingsService(f.pool, f.registry, nil, "", testLogger())
	require.NoError(t, err)

	status := svc.CredentialStatus()
	assert.Equal(t, "backup[0]", status.Current)
	assert.Equal(t, 3, status.Total)

	f.pool.Rotate()
	status = svc.CredentialStatus()
	assert.Equal(t, 2, status.Position)
	assert.Equal(t, "backup[1]", status.Current)

	f.pool.Rotate()
	f.pool.Rotate()
	status = svc.CredentialStatus()
	assert.Empty(t, status.Current)
}

func TestUpdateModels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	svc, err := service.NewSettingsService(f.pool, f.registry, nil, "primary-key", testLogger())
	require.NoError(t, err)

	table, err := svc.UpdateModels(context.Background(),
		map[domain.ModelTask]string{domain.TaskFastVideo: "veo-custom"})
	require.NoError(t, err)
	assert.Equal(t, "veo-custom", table[domain.TaskFastVideo])
	assert.Equal(t, registry.DefaultModels()[domain.TaskText], table[domain.TaskText])
	assert.Equal(t, table, svc.Models())

	table, err = svc.UpdateModels(context.Background(),
		map[domain.ModelTask]string{domain.TaskFastVideo: ""})
	require.NoError(t, err)
	assert.Equal(t, registry.DefaultModels()[domain.TaskFastVideo], table[domain.TaskFastVideo])
}

func TestUpdateModelsRejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	svc, err := service.NewSettingsService(f.pool, f.registry, nil, "primary-key", testLogger())
	require.NoError(t, err)

	_, err = svc.UpdateModels(context.Background(), nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.UpdateModels(context.Background(), map[domain.ModelTask]string{"music": "x"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, registry.ErrUnknownTask)
}
