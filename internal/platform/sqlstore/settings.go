// Package sqlstore implements the store interfaces on database/sql. The
// queries run unchanged on PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/platform/logger"
	"github.com/phrazzld/genstudio/internal/store"
)

// Settings keys
const (
	backupCredentialsKey = "credentials.backups"
	modelOverridePrefix  = "models."
)

// SettingsStore implements store.SettingsStore on a settings table of
// JSON values.
type SettingsStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates a SettingsStore.
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// LoadBackupCredentials implements store.SettingsStore.
func (s *SettingsStore) LoadBackupCredentials(ctx context.Context) ([]string, bool, error) {
	var keys []string
	err := s.get(ctx, s.db, backupCredentialsKey, &keys)
	if errors.Is(err, store.ErrSettingNotFound) {
		return []string{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, true, nil
}

// SaveBackupCredentials implements store.SettingsStore.
func (s *SettingsStore) SaveBackupCredentials(ctx context.Context, keys []string) error {
	if len(keys) > domain.MaxBackupCredentials {
		return fmt.Errorf("%w: %d backup credentials exceeds the limit of %d",
			store.ErrInvalidEntity, len(keys), domain.MaxBackupCredentials)
	}
	if keys == nil {
		keys = []string{}
	}

	logger.FromContext(ctx).DebugContext(ctx, "saving backup credentials", "count", len(keys))
	return s.put(ctx, s.db, backupCredentialsKey, keys)
}

// LoadModelOverrides implements store.SettingsStore. Rows for unknown
// tasks are ignored.
func (s *SettingsStore) LoadModelOverrides(ctx context.Context) (map[domain.ModelTask]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key LIKE $1`, modelOverridePrefix+"%")
	if err != nil {
		return nil, store.NewStoreError("setting", "load", "failed to query model overrides", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	overrides := make(map[domain.ModelTask]string)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, store.NewStoreError("setting", "load", "failed to scan model override", err)
		}

		task := domain.ModelTask(strings.TrimPrefix(key, modelOverridePrefix))
		if !task.IsValid() {
			logger.FromContext(ctx).WarnContext(ctx, "ignoring override for unknown task", "task", task)
			continue
		}

		var model string
		if err := json.Unmarshal([]byte(raw), &model); err != nil {
			return nil, store.NewStoreError("setting", "load",
				fmt.Sprintf("invalid value for %s", key), err)
		}
		overrides[task] = model
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("setting", "load", "failed to read model overrides", err)
	}

	return overrides, nil
}

// SaveModelOverrides implements store.SettingsStore. The whole table is
// replaced in one transaction.
func (s *SettingsStore) SaveModelOverrides(ctx context.Context, overrides map[domain.ModelTask]string) error {
	for task := range overrides {
		if !task.IsValid() {
			return fmt.Errorf("%w: unknown model task %q", store.ErrInvalidEntity, task)
		}
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM settings WHERE key LIKE $1`, modelOverridePrefix+"%"); err != nil {
			return store.NewStoreError("setting", "save", "failed to clear model overrides", MapError(err))
		}

		for task, model := range overrides {
			if err := s.put(ctx, tx, modelOverridePrefix+string(task), model); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SettingsStore) get(ctx context.Context, db store.DBTX, key string, dest any) error {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrSettingNotFound
	}
	if err != nil {
		return store.NewStoreError("setting", "load", fmt.Sprintf("failed to read %s", key), MapError(err))
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return store.NewStoreError("setting", "load", fmt.Sprintf("invalid value for %s", key), err)
	}
	return nil
}

func (s *SettingsStore) put(ctx context.Context, db store.DBTX, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return store.NewStoreError("setting", "save", fmt.Sprintf("failed to encode %s", key), err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), s.now())
	if err != nil {
		return store.NewStoreError("setting", "save", fmt.Sprintf("failed to write %s", key), MapError(err))
	}
	return nil
}
