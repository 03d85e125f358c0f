package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/genstudio/internal/api/middleware"
	"github.com/phrazzld/genstudio/internal/api/shared"
	"github.com/phrazzld/genstudio/internal/service/auth"
)

// RouterConfig carries the collaborators behind the routes.
type RouterConfig struct {
	Logger   *slog.Logger
	Tokens   auth.TokenService
	Videos   VideoJobs
	Settings Settings
	Media    Media
}

// NewRouter builds the HTTP handler. Everything under /v1 requires a
// bearer token; /health does not.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTraceMiddleware(cfg.Logger))

	videos := NewVideoHandler(cfg.Videos, cfg.Logger)
	settings := NewSettingsHandler(cfg.Settings, cfg.Logger)
	media := NewMediaHandler(cfg.Media, cfg.Logger)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Tokens)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/videos", videos.CreateVideo)
		r.Get("/videos/{id}", videos.GetVideo)
		r.Delete("/videos/{id}", videos.DeleteVideo)
		r.Get("/videos/{id}/content", videos.GetVideoContent)

		r.Post("/text", media.GenerateText)
		r.Post("/images", media.GenerateImage)

		r.Get("/settings/credentials", settings.GetCredentials)
		r.Put("/settings/credentials/backups", settings.ReplaceBackups)
		r.Get("/settings/models", settings.GetModels)
		r.Patch("/settings/models", settings.UpdateModels)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
