package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps assets as files under a directory.
type LocalStore struct {
	tracker
	dir    string
	logger *slog.Logger
}

// NewLocalStore creates the directory if needed and returns a store
// rooted there.
func NewLocalStore(dir string, logger *slog.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("asset directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}

	return &LocalStore{
		dir:    dir,
		logger: logger.With("component", "local_asset_store"),
	}, nil
}

// Put implements Store.
func (s *LocalStore) Put(ctx context.Context, data []byte, mimeType string) (*Handle, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAsset
	}

	key := uuid.NewString()
	if err := os.WriteFile(s.path(key), data, 0o640); err != nil {
		return nil, fmt.Errorf("failed to write asset: %w", err)
	}

	s.logger.DebugContext(ctx, "stored asset", "asset_id", key, "size", len(data))
	return newHandle(key, int64(len(data)), mimeType, s, &s.tracker), nil
}

func (s *LocalStore) get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}
	return f, nil
}

func (s *LocalStore) remove(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WarnContext(ctx, "failed to remove asset", "asset_id", key, "error", err)
		return fmt.Errorf("failed to remove asset: %w", err)
	}
	return nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, key)
}
