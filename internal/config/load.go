package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// GENSTUDIO_SERVER_PORT for server.port.
const EnvPrefix = "GENSTUDIO"

// ConfigPathEnv names an explicit config file to read.
const ConfigPathEnv = "GENSTUDIO_CONFIG"

// keys without defaults still need binding so Unmarshal sees their
// environment variables.
var boundKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"llm.gemini_api_key",
	"llm.backup_api_keys",
	"llm.base_url",
	"server.log_file",
	"models.image",
	"models.text",
	"models.fast_video",
	"models.quality_video",
	"models.speech",
	"storage.s3_bucket",
	"storage.s3_region",
	"storage.s3_endpoint",
	"storage.s3_access_key",
	"storage.s3_secret_key",
	"storage.s3_prefix",
}

// Load configuration from environment variables and optionally a
// config.yaml in the working directory (or the file named by
// GENSTUDIO_CONFIG). Environment variables take precedence over the file.
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadAuth reads only the auth section, from the same sources as Load.
// Tools that mint tokens use it without needing the rest of the server
// configuration.
func LoadAuth() (*AuthConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := AuthConfig{
		JWTSecret:     v.GetString("auth.jwt_secret"),
		TokenLifetime: v.GetDuration("auth.token_lifetime"),
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigPathEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return v, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_max_size_mb", 100)
	v.SetDefault("server.log_max_backups", 3)
	v.SetDefault("server.log_max_age_days", 28)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("auth.token_lifetime", "24h")

	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 4)
	v.SetDefault("llm.timeout", "2m")
	v.SetDefault("llm.rate_limit_as_quota", true)

	v.SetDefault("executor.max_server_retries", 2)
	v.SetDefault("executor.base_delay", "1s")
	v.SetDefault("executor.max_jitter", "1s")

	v.SetDefault("jobs.poll_interval", "10s")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./data/assets")
}
