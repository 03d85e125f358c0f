package asset

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var (
	// ErrReleased is returned when reading from a released handle.
	ErrReleased = errors.New("asset handle already released")

	// ErrEmptyAsset is returned when storing zero bytes.
	ErrEmptyAsset = errors.New("asset is empty")
)

// Store persists asset bytes and returns a handle to them.
type Store interface {
	// Put stores data and returns an unreleased handle.
	Put(ctx context.Context, data []byte, mimeType string) (*Handle, error)

	// Live returns the number of handles not yet released.
	Live() int
}

// backend is the storage a Handle reads from and removes on release.
type backend interface {
	get(ctx context.Context, key string) (io.ReadCloser, error)
	remove(ctx context.Context, key string) error
}

// tracker counts live handles for a store.
type tracker struct {
	live atomic.Int64
}

func (t *tracker) Live() int {
	return int(t.live.Load())
}

// Handle refers to one stored asset.
type Handle struct {
	key      string
	size     int64
	mimeType string

	backend backend
	tracker *tracker

	mu       sync.Mutex
	released bool
}

func newHandle(key string, size int64, mimeType string, b backend, t *tracker) *Handle {
	t.live.Add(1)
	return &Handle{key: key, size: size, mimeType: mimeType, backend: b, tracker: t}
}

// ID returns the storage key of the asset.
func (h *Handle) ID() string { return h.key }

// Size returns the asset length in bytes.
func (h *Handle) Size() int64 { return h.size }

// MIMEType returns the asset content type.
func (h *Handle) MIMEType() string { return h.mimeType }

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Open returns a reader over the asset bytes. The caller must close it.
func (h *Handle) Open(ctx context.Context) (io.ReadCloser, error) {
	if h.Released() {
		return nil, ErrReleased
	}
	return h.backend.get(ctx, h.key)
}

// Release deletes the stored bytes. Only the first call has any effect;
// later calls return nil. The handle counts as released even when the
// delete fails.
func (h *Handle) Release(ctx context.Context) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return nil
	}
	h.released = true
	h.mu.Unlock()

	h.tracker.live.Add(-1)
	return h.backend.remove(ctx, h.key)
}
