package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/genstudio/internal/platform/database"
	"github.com/stretchr/testify/require"
)

// DatabaseURLEnv names the database used by OpenConfigured.
const DatabaseURLEnv = "GENSTUDIO_TEST_DATABASE_URL"

const memoryURL = "sqlite://:memory:"

// ConfiguredURL returns the URL from DatabaseURLEnv, or "" when unset.
func ConfiguredURL() string {
	return os.Getenv(DatabaseURLEnv)
}

// Open returns a migrated in-memory SQLite database that is closed when
// the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	return open(t, memoryURL)
}

// OpenConfigured returns the migrated database named by DatabaseURLEnv.
func OpenConfigured(t *testing.T) *sql.DB {
	t.Helper()

	url := ConfiguredURL()
	if url == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}
	return open(t, url)
}

func open(t *testing.T, url string) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, dialect, err := database.Open(ctx, url, log)
	require.NoError(t, err, "open test database")
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.Migrate(ctx, db, dialect, log)
	require.NoError(t, err, "migrate test database")
	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
//
// On an in-memory database fn must only use tx: the pool holds a single
// connection.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "begin test transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("rollback test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
