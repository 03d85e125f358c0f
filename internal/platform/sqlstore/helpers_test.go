package sqlstore

import (
	"database/sql"
	"testing"

	"github.com/phrazzld/genstudio/internal/testdb"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return testdb.Open(t)
}
