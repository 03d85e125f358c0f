package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/genstudio/internal/api/shared"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/service"
)

// Settings is the settings use case. *service.SettingsService
// implements it.
type Settings interface {
	ReplaceBackups(ctx context.Context, keys []string) (service.CredentialStatus, error)
	CredentialStatus() service.CredentialStatus
	Models() map[domain.ModelTask]string
	UpdateModels(ctx context.Context, partial map[domain.ModelTask]string) (map[domain.ModelTask]string, error)
}

// ReplaceBackupsRequest is the body of PUT /v1/settings/credentials/backups.
// An empty list removes every backup.
type ReplaceBackupsRequest struct {
	Keys []string `json:"keys"`
}

// UpdateModelsRequest is the body of PATCH /v1/settings/models. An empty
// model id restores the default for that task.
type UpdateModelsRequest struct {
	Models map[string]string `json:"models" validate:"required,min=1"`
}

// ModelsResponse lists the effective model per task.
type ModelsResponse struct {
	Models map[domain.ModelTask]string `json:"models"`
}

// SettingsHandler handles runtime configuration requests.
type SettingsHandler struct {
	settings Settings
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(settings Settings, logger *slog.Logger) *SettingsHandler {
	if settings == nil || logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("settings and logger cannot be nil for SettingsHandler")
	}
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With(slog.String("component", "settings_handler")),
	}
}

// GetCredentials handles GET /v1/settings/credentials. Secrets are never
// returned, only their labels.
func (h *SettingsHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.settings.CredentialStatus())
}

// ReplaceBackups handles PUT /v1/settings/credentials/backups.
func (h *SettingsHandler) ReplaceBackups(w http.ResponseWriter, r *http.Request) {
	var req ReplaceBackupsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	status, err := h.settings.ReplaceBackups(r.Context(), req.Keys)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// GetModels handles GET /v1/settings/models.
func (h *SettingsHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ModelsResponse{Models: h.settings.Models()})
}

// UpdateModels handles PATCH /v1/settings/models.
func (h *SettingsHandler) UpdateModels(w http.ResponseWriter, r *http.Request) {
	var req UpdateModelsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	partial := make(map[domain.ModelTask]string, len(req.Models))
	for task, model := range req.Models {
		partial[domain.ModelTask(task)] = model
	}

	table, err := h.settings.UpdateModels(r.Context(), partial)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ModelsResponse{Models: table})
}
