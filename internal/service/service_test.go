package service_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/genstudio/internal/credential"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/mocks"
	"github.com/phrazzld/genstudio/internal/platform/clock"
	"github.com/phrazzld/genstudio/internal/registry"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	pool     *credential.Pool
	registry *registry.Registry
	store    *mocks.MockSettingsStore
	executor *generation.Executor
}

func newFixture(t *testing.T, primary string, backups ...string) fixture {
	t.Helper()

	st := mocks.NewMockSettingsStore()
	pool, err := credential.NewPool(primary, backups, st, testLogger())
	require.NoError(t, err)

	reg, err := registry.New(registry.DefaultModels(), st, testLogger())
	require.NoError(t, err)

	exec, err := generation.NewExecutor(pool, clock.NewFake(), generation.DefaultExecutorConfig(), testLogger())
	require.NoError(t, err)

	return fixture{pool: pool, registry: reg, store: st, executor: exec}
}

// recordingCache implements service.ClientCache.
type recordingCache struct {
	kept [][]string
}

func (c *recordingCache) Forget(keep ...string) {
	c.kept = append(c.kept, keep)
}
