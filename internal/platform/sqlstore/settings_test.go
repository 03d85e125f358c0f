package sqlstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/genstudio/internal/credential"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupCredentials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettingsStore(newTestDB(t))

	keys, stored, err := s.LoadBackupCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, []string{}, keys)

	require.NoError(t, s.SaveBackupCredentials(ctx, []string{"k1", "k2"}))
	keys, stored, err = s.LoadBackupCredentials(ctx)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, []string{"k1", "k2"}, keys)

	require.NoError(t, s.SaveBackupCredentials(ctx, nil))
	keys, stored, err = s.LoadBackupCredentials(ctx)
	require.NoError(t, err)
	assert.True(t, stored, "a cleared list is still a stored list")
	assert.Equal(t, []string{}, keys)
}

func TestBackupCredentialsLimit(t *testing.T) {
	t.Parallel()

	s := NewSettingsStore(newTestDB(t))

	tooMany := make([]string, domain.MaxBackupCredentials+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("key-%d", i)
	}

	err := s.SaveBackupCredentials(context.Background(), tooMany)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestBackupCredentialsCorruptValue(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, err := db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)`,
		backupCredentialsKey, "not json", time.Now().UTC())
	require.NoError(t, err)

	_, _, err = NewSettingsStore(db).LoadBackupCredentials(context.Background())
	var storeErr *store.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestModelOverrides(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettingsStore(newTestDB(t))

	got, err := s.LoadModelOverrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	first := map[domain.ModelTask]string{
		domain.TaskText:      "text-pro",
		domain.TaskFastVideo: "veo-fast-preview",
	}
	require.NoError(t, s.SaveModelOverrides(ctx, first))

	got, err = s.LoadModelOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := map[domain.ModelTask]string{domain.TaskImage: "imagen-ultra"}
	require.NoError(t, s.SaveModelOverrides(ctx, second))

	got, err = s.LoadModelOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got, "save replaces the whole table")
}

func TestModelOverridesUnknownTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	s := NewSettingsStore(db)

	err := s.SaveModelOverrides(ctx, map[domain.ModelTask]string{"music": "x"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)`,
		"models.music", `"x"`, time.Now().UTC())
	require.NoError(t, err)

	got, err := s.LoadModelOverrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestModelOverridesKeepBackups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettingsStore(newTestDB(t))

	require.NoError(t, s.SaveBackupCredentials(ctx, []string{"k1"}))
	require.NoError(t, s.SaveModelOverrides(ctx, map[domain.ModelTask]string{}))

	keys, _, err := s.LoadBackupCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, keys)
}

func TestClearedBackupsSurviveRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettingsStore(newTestDB(t))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	seed := []string{"seed1", "seed2"}

	first, err := credential.LoadPool(ctx, "primary", seed, s, log)
	require.NoError(t, err)
	require.Equal(t, seed, first.Backups())
	require.NoError(t, first.ReplaceBackups(ctx, nil))

	second, err := credential.LoadPool(ctx, "primary", seed, s, log)
	require.NoError(t, err)
	assert.Empty(t, second.Backups())
}
