package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// slogGooseLogger forwards goose output to slog. Fatalf does not exit;
// the error is returned to the caller instead.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func gooseDialect(d Dialect) (goose.Dialect, error) {
	switch d {
	case DialectPostgres:
		return goose.DialectPostgres, nil
	case DialectSQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("%w: dialect %q", ErrUnsupportedURL, d)
	}
}

func newProvider(db *sql.DB, dialect Dialect, logger *slog.Logger) (*goose.Provider, error) {
	gd, err := gooseDialect(dialect)
	if err != nil {
		return nil, err
	}

	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	return goose.NewProvider(gd, db, fsys,
		goose.WithLogger(slogGooseLogger{logger: logger}),
		goose.WithDisableGlobalRegistry(true),
	)
}

// Migrate applies every pending migration and returns the resulting
// schema version.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (int64, error) {
	log := logger.With("component", "migrations", "dialect", dialect)

	provider, err := newProvider(db, dialect, log)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "applied migration",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds())
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	log.InfoContext(ctx, "database schema is up to date",
		"version", version,
		"applied", len(results))

	return version, nil
}

// MigrationStatus reports, per embedded migration, whether it has been
// applied.
func MigrationStatus(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (map[int64]bool, error) {
	provider, err := newProvider(db, dialect, logger)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make(map[int64]bool, len(statuses))
	for _, s := range statuses {
		out[s.Source.Version] = s.State == goose.StateApplied
	}
	return out, nil
}
