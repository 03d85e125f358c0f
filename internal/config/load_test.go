package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisasecretkeythatis32charslong!!"

// requiredEnv sets the fields that have no defaults.
func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GENSTUDIO_DATABASE_URL", "sqlite:///tmp/genstudio.db")
	t.Setenv("GENSTUDIO_AUTH_JWT_SECRET", testSecret)
	t.Setenv("GENSTUDIO_LLM_GEMINI_API_KEY", "primary-key")
	t.Setenv(ConfigPathEnv, "")
}

// chdirTemp runs the test from an empty directory so no config.yaml is
// picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// TestLoadDefaults verifies the defaults applied when only required
// variables are set.
func TestLoadDefaults(t *testing.T) {
	requiredEnv(t)
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2, cfg.Executor.MaxServerRetries)
	assert.Equal(t, time.Second, cfg.Executor.BaseDelay)
	assert.Equal(t, time.Second, cfg.Executor.MaxJitter)
	assert.Equal(t, 10*time.Second, cfg.Jobs.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenLifetime)
	assert.True(t, cfg.LLM.RateLimitAsQuota)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Empty(t, cfg.Models.Defaults())
}

// TestLoadFromEnv verifies that environment variables override defaults.
func TestLoadFromEnv(t *testing.T) {
	requiredEnv(t)
	chdirTemp(t)
	t.Setenv("GENSTUDIO_SERVER_PORT", "9090")
	t.Setenv("GENSTUDIO_SERVER_LOG_LEVEL", "debug")
	t.Setenv("GENSTUDIO_LLM_BACKUP_API_KEYS", "k1,k2")
	t.Setenv("GENSTUDIO_JOBS_POLL_INTERVAL", "5s")
	t.Setenv("GENSTUDIO_MODELS_FAST_VIDEO", "veo-custom")
	t.Setenv("GENSTUDIO_LLM_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, []string{"k1", "k2"}, cfg.LLM.BackupAPIKeys)
	assert.Equal(t, 5*time.Second, cfg.Jobs.PollInterval)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, map[domain.ModelTask]string{domain.TaskFastVideo: "veo-custom"}, cfg.Models.Defaults())
}

// TestLoadFromFile verifies that a config file is read and that the
// environment still wins over it.
func TestLoadFromFile(t *testing.T) {
	requiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "genstudio.yaml")
	yaml := `
server:
  port: 7070
  log_level: warn
storage:
  backend: s3
  s3_bucket: videos
  s3_region: us-east-1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnv, path)
	t.Setenv("GENSTUDIO_SERVER_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Server.LogLevel)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "videos", cfg.Storage.S3Bucket)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	requiredEnv(t)
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

// TestLoadValidationErrors verifies that invalid values are rejected.
func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid port", map[string]string{"GENSTUDIO_SERVER_PORT": "70000"}},
		{"invalid log level", map[string]string{"GENSTUDIO_SERVER_LOG_LEVEL": "verbose"}},
		{"short jwt secret", map[string]string{"GENSTUDIO_AUTH_JWT_SECRET": "short"}},
		{"no credentials", map[string]string{"GENSTUDIO_LLM_GEMINI_API_KEY": ""}},
		{"unknown storage backend", map[string]string{"GENSTUDIO_STORAGE_BACKEND": "ftp"}},
		{"s3 without bucket", map[string]string{"GENSTUDIO_STORAGE_BACKEND": "s3"}},
		{"zero poll interval", map[string]string{"GENSTUDIO_JOBS_POLL_INTERVAL": "0s"}},
		{"negative llm timeout", map[string]string{"GENSTUDIO_LLM_TIMEOUT": "-1s"}},
		{"too many backups", map[string]string{"GENSTUDIO_LLM_BACKUP_API_KEYS": "1,2,3,4,5,6,7,8,9,10,11"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			requiredEnv(t)
			chdirTemp(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, "config validation failed")
		})
	}
}

func TestBackupKeysWithoutPrimary(t *testing.T) {
	requiredEnv(t)
	chdirTemp(t)
	t.Setenv("GENSTUDIO_LLM_GEMINI_API_KEY", "")
	t.Setenv("GENSTUDIO_LLM_BACKUP_API_KEYS", "k1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.GeminiAPIKey)
	assert.Equal(t, []string{"k1"}, cfg.LLM.BackupAPIKeys)
}

// TestLoadAuth verifies that the auth section loads without the rest of
// the server configuration.
func TestLoadAuth(t *testing.T) {
	chdirTemp(t)
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("GENSTUDIO_DATABASE_URL", "")
	t.Setenv("GENSTUDIO_AUTH_JWT_SECRET", testSecret)
	t.Setenv("GENSTUDIO_AUTH_TOKEN_LIFETIME", "2h")

	cfg, err := LoadAuth()
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenLifetime)

	t.Setenv("GENSTUDIO_AUTH_JWT_SECRET", "short")
	_, err = LoadAuth()
	assert.ErrorContains(t, err, "config validation failed")
}
