package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/genstudio/internal/api"
	"github.com/phrazzld/genstudio/internal/asset"
	"github.com/phrazzld/genstudio/internal/config"
	"github.com/phrazzld/genstudio/internal/credential"
	"github.com/phrazzld/genstudio/internal/events"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/job"
	"github.com/phrazzld/genstudio/internal/platform/clock"
	"github.com/phrazzld/genstudio/internal/platform/database"
	"github.com/phrazzld/genstudio/internal/platform/gemini"
	"github.com/phrazzld/genstudio/internal/platform/sqlstore"
	"github.com/phrazzld/genstudio/internal/registry"
	"github.com/phrazzld/genstudio/internal/service"
	"github.com/phrazzld/genstudio/internal/service/auth"
)

// application holds the wired dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	pool     *credential.Pool
	models   *registry.Registry
	clients  *gemini.ClientFactory
	executor *generation.Executor
	jobs     *job.Controller
	tokens   auth.TokenService

	media    *service.MediaService
	settings *service.SettingsService
}

// newApplication opens storage, applies migrations and wires every
// component. On error, anything already opened is closed.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			app.cleanup(context.WithoutCancel(ctx))
		}
	}()

	db, dialect, err := database.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if _, err := database.Migrate(ctx, db, dialect, logger); err != nil {
		return nil, err
	}

	settingsStore := sqlstore.NewSettingsStore(db)
	jobStore := sqlstore.NewJobStore(db)

	app.pool, err = credential.LoadPool(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.BackupAPIKeys, settingsStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential pool: %w", err)
	}

	app.models, err = registry.New(cfg.Models.Defaults(), settingsStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model registry: %w", err)
	}
	if err := app.models.Load(ctx); err != nil {
		return nil, err
	}

	app.clients, err = gemini.NewClientFactory(gemini.ClientConfig{
		BaseURL:           cfg.LLM.BaseURL,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		Timeout:           cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client factory: %w", err)
	}
	backend, err := gemini.NewService(app.clients,
		gemini.ClassifyPolicy{RateLimitAsQuota: cfg.LLM.RateLimitAsQuota}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini service: %w", err)
	}

	clk := clock.New()
	app.executor, err = generation.NewExecutor(app.pool, clk, generation.ExecutorConfig{
		MaxServerRetries: cfg.Executor.MaxServerRetries,
		BaseDelay:        cfg.Executor.BaseDelay,
		MaxJitter:        cfg.Executor.MaxJitter,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	assets, err := newAssetStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	emitter := events.NewBus(logger)
	emitter.Subscribe(events.NewLoggingHandler(logger))

	app.jobs, err = job.NewController(app.executor, app.models, backend, assets, clk,
		job.Config{PollInterval: cfg.Jobs.PollInterval}, logger,
		job.WithEventEmitter(emitter),
		job.WithJobStore(jobStore))
	if err != nil {
		return nil, fmt.Errorf("failed to create job controller: %w", err)
	}
	if _, err := app.jobs.Recover(ctx); err != nil {
		return nil, err
	}

	app.media, err = service.NewMediaService(app.executor, app.models, backend, logger)
	if err != nil {
		return nil, err
	}
	app.settings, err = service.NewSettingsService(app.pool, app.models, app.clients, cfg.LLM.GeminiAPIKey, logger)
	if err != nil {
		return nil, err
	}

	app.tokens, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	ready = true
	logger.InfoContext(ctx, "application initialized",
		"credentials", app.pool.Size(),
		"database", dialect)
	return app, nil
}

// newAssetStore selects where downloaded videos are kept.
func newAssetStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (asset.Store, error) {
	switch cfg.Backend {
	case "s3":
		return asset.NewS3Store(ctx, asset.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		}, logger)
	case "local", "":
		return asset.NewLocalStore(cfg.LocalDir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// router builds the HTTP handler from the wired services.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:   app.logger,
		Tokens:   app.tokens,
		Videos:   app.jobs,
		Settings: app.settings,
		Media:    app.media,
	})
}

// Run serves HTTP until ctx ends, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	return app.startHTTPServer(ctx, app.router())
}

// cleanup stops the job controller and closes the database.
func (app *application) cleanup(ctx context.Context) {
	var errs []error
	if app.jobs != nil {
		errs = append(errs, app.jobs.Shutdown(ctx))
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.ErrorContext(ctx, "error during application shutdown", "error", err)
	}

	app.logger.InfoContext(ctx, "application shutdown completed")
}
