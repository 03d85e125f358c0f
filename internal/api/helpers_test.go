package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/api"
	"github.com/phrazzld/genstudio/internal/asset"
	"github.com/phrazzld/genstudio/internal/config"
	"github.com/phrazzld/genstudio/internal/credential"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/job"
	"github.com/phrazzld/genstudio/internal/mocks"
	"github.com/phrazzld/genstudio/internal/platform/clock"
	"github.com/phrazzld/genstudio/internal/registry"
	"github.com/phrazzld/genstudio/internal/service"
	"github.com/phrazzld/genstudio/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "api-test-secret-that-is-long-enough"
	pollInterval = 10 * time.Second
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	handler  http.Handler
	token    string
	clock    *clock.FakeClock
	pool     *credential.Pool
	settings *mocks.MockSettingsStore
	video    *mocks.MockVideoBackend
	media    *mocks.MockMediaBackend
	assets   *asset.LocalStore
	ctrl     *job.Controller
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testLogger()
	clk := clock.NewFake()
	st := mocks.NewMockSettingsStore()

	pool, err := credential.NewPool("primary-key", []string{"backup-key"}, st, logger)
	require.NoError(t, err)
	models, err := registry.New(registry.DefaultModels(), st, logger)
	require.NoError(t, err)
	exec, err := generation.NewExecutor(pool, clk, generation.DefaultExecutorConfig(), logger)
	require.NoError(t, err)
	assets, err := asset.NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)

	ts := &testServer{
		clock:    clk,
		pool:     pool,
		settings: st,
		video:    &mocks.MockVideoBackend{Operation: "operations/op-1"},
		media:    &mocks.MockMediaBackend{},
		assets:   assets,
	}

	ts.ctrl, err = job.NewController(exec, models, ts.video, assets, clk,
		job.Config{PollInterval: pollInterval}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.ctrl.Shutdown(context.Background()) })

	mediaSvc, err := service.NewMediaService(exec, models, ts.media, logger)
	require.NoError(t, err)
	settingsSvc, err := service.NewSettingsService(pool, models, nil, "primary-key", logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	ts.token, err = tokens.GenerateToken(context.Background(), "studio-ui")
	require.NoError(t, err)

	ts.handler = api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Tokens:   tokens,
		Videos:   ts.ctrl,
		Settings: settingsSvc,
		Media:    mediaSvc,
	})
	return ts
}

// do sends an authenticated request. body is JSON-encoded unless it is
// already a string.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doWithToken(t, method, path, body, ts.token)
}

func (ts *testServer) doWithToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
