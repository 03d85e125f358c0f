package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/genstudio/internal/api/shared"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/service"
)

// Media is the one-shot generation use case. *service.MediaService
// implements it.
type Media interface {
	GenerateText(ctx context.Context, prompt string) (service.TextResult, error)
	GenerateImage(ctx context.Context, req domain.ImageRequest) (service.ImageResult, error)
}

// TextRequest is the body of POST /v1/text.
type TextRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// ImageRequest is the body of POST /v1/images.
type ImageRequest struct {
	Prompt      string `json:"prompt"       validate:"required"`
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=1:1 3:4 4:3 9:16 16:9"`
}

// ImageResponse carries a generated image. Data is base64 in JSON.
type ImageResponse struct {
	Model    string `json:"model"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// MediaHandler handles text and image generation requests.
type MediaHandler struct {
	media  Media
	logger *slog.Logger
}

// NewMediaHandler creates a MediaHandler.
func NewMediaHandler(media Media, logger *slog.Logger) *MediaHandler {
	if media == nil || logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("media and logger cannot be nil for MediaHandler")
	}
	return &MediaHandler{
		media:  media,
		logger: logger.With(slog.String("component", "media_handler")),
	}
}

// GenerateText handles POST /v1/text.
func (h *MediaHandler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.media.GenerateText(r.Context(), req.Prompt)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// GenerateImage handles POST /v1/images.
func (h *MediaHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.media.GenerateImage(r.Context(), domain.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ImageResponse{
		Model:    res.Model,
		MIMEType: res.Image.MIMEType,
		Data:     res.Image.Bytes,
	})
}
