package config

import (
	"time"

	"github.com/phrazzld/genstudio/internal/domain"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Models   ModelsConfig   `mapstructure:"models"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFile         string        `mapstructure:"log_file"`
	LogMaxSizeMB    int           `mapstructure:"log_max_size_mb"  validate:"gte=0"`
	LogMaxBackups   int           `mapstructure:"log_max_backups"  validate:"gte=0"`
	LogMaxAgeDays   int           `mapstructure:"log_max_age_days" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// URL is either a postgres:// URL or sqlite://path.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetime is the validity of tokens minted by cmd/token.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LLMConfig configures access to the generation service.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_without=BackupAPIKeys"`

	// BackupAPIKeys seeds the backup list on first start. Once a list has
	// been saved through the settings API the stored list wins.
	BackupAPIKeys []string `mapstructure:"backup_api_keys" validate:"max=10,dive,required"`

	BaseURL           string  `mapstructure:"base_url"            validate:"omitempty,url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst"               validate:"gte=0"`

	// Timeout bounds each HTTP request to the service. Zero leaves it to
	// the caller's context.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// RateLimitAsQuota makes a 429 without quota details rotate the
	// credential instead of retrying it.
	RateLimitAsQuota bool `mapstructure:"rate_limit_as_quota"`
}

// ExecutorConfig holds the retry policy.
type ExecutorConfig struct {
	MaxServerRetries int           `mapstructure:"max_server_retries" validate:"gte=0,lte=10"`
	BaseDelay        time.Duration `mapstructure:"base_delay"         validate:"gt=0"`
	MaxJitter        time.Duration `mapstructure:"max_jitter"         validate:"gte=0"`
}

// JobsConfig configures video job polling.
type JobsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// ModelsConfig overrides the compiled-in model for each task. Empty
// fields keep the default.
type ModelsConfig struct {
	Image        string `mapstructure:"image"`
	Text         string `mapstructure:"text"`
	FastVideo    string `mapstructure:"fast_video"`
	QualityVideo string `mapstructure:"quality_video"`
	Speech       string `mapstructure:"speech"`
}

// Defaults returns the non-empty fields keyed by task.
func (m ModelsConfig) Defaults() map[domain.ModelTask]string {
	out := make(map[domain.ModelTask]string)
	for task, model := range map[domain.ModelTask]string{
		domain.TaskImage:        m.Image,
		domain.TaskText:         m.Text,
		domain.TaskFastVideo:    m.FastVideo,
		domain.TaskQualityVideo: m.QualityVideo,
		domain.TaskSpeech:       m.Speech,
	} {
		if model != "" {
			out[task] = model
		}
	}
	return out
}

// StorageConfig selects where downloaded videos are kept.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"   validate:"required,oneof=local s3"`
	LocalDir string `mapstructure:"local_dir" validate:"required_if=Backend local"`

	S3Bucket    string `mapstructure:"s3_bucket"     validate:"required_if=Backend s3"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"   validate:"omitempty,url"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key" validate:"required_with=S3AccessKey"`
	S3Prefix    string `mapstructure:"s3_prefix"`
}
