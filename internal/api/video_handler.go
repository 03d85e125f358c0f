package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/genstudio/internal/api/shared"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/job"
	"github.com/phrazzld/genstudio/internal/platform/logger"
)

// VideoJobs is the part of *job.Controller the video handler needs.
type VideoJobs interface {
	Submit(ctx context.Context, req domain.VideoRequest) (*job.Job, error)
	Get(id uuid.UUID) (*job.Job, error)
	Lookup(ctx context.Context, id uuid.UUID) (domain.JobSnapshot, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// SourceImageRequest is an optional first frame. Data is base64 in JSON.
type SourceImageRequest struct {
	Data     []byte `json:"data"      validate:"required"`
	MIMEType string `json:"mime_type" validate:"required,oneof=image/png image/jpeg image/webp"`
}

// CreateVideoRequest is the body of POST /v1/videos.
type CreateVideoRequest struct {
	Prompt      string              `json:"prompt"       validate:"required"`
	AspectRatio string              `json:"aspect_ratio" validate:"required,oneof=16:9 9:16"`
	Quality     string              `json:"quality"      validate:"omitempty,oneof=fast high"`
	SourceImage *SourceImageRequest `json:"source_image" validate:"omitempty"`
}

// VideoJobResponse describes a video job.
type VideoJobResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Model       string    `json:"model,omitempty"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	Error       string    `json:"error,omitempty"`
	ContentURL  string    `json:"content_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VideoHandler handles video job requests.
type VideoHandler struct {
	jobs   VideoJobs
	logger *slog.Logger
}

// NewVideoHandler creates a VideoHandler.
func NewVideoHandler(jobs VideoJobs, logger *slog.Logger) *VideoHandler {
	if jobs == nil || logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("video jobs and logger cannot be nil for VideoHandler")
	}
	return &VideoHandler{
		jobs:   jobs,
		logger: logger.With(slog.String("component", "video_handler")),
	}
}

// CreateVideo handles POST /v1/videos. It answers 202 once the remote
// service accepted the job; polling continues in the background.
func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	videoReq := domain.VideoRequest{
		Prompt:      req.Prompt,
		AspectRatio: domain.AspectRatio(req.AspectRatio),
		Quality:     domain.VideoQuality(req.Quality),
	}
	if req.SourceImage != nil {
		videoReq.SourceImage = &domain.SourceImage{
			Bytes:    req.SourceImage.Data,
			MIMEType: req.SourceImage.MIMEType,
		}
	}

	// The job outlives the request; only the submission is tied to it.
	j, err := h.jobs.Submit(r.Context(), videoReq)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).InfoContext(r.Context(), "video job accepted",
		"job_id", j.ID(),
		"aspect_ratio", videoReq.AspectRatio)

	w.Header().Set("Location", "/v1/videos/"+j.ID().String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, toVideoJobResponse(j.Snapshot()))
}

// GetVideo handles GET /v1/videos/{id}.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	snap, err := h.jobs.Lookup(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, toVideoJobResponse(snap))
}

// DeleteVideo handles DELETE /v1/videos/{id}. A running job is cancelled
// and a downloaded video is released.
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	if err := h.jobs.Discard(r.Context(), id); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).InfoContext(r.Context(), "video job discarded", "job_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetVideoContent handles GET /v1/videos/{id}/content and streams the
// downloaded video.
func (h *VideoHandler) GetVideoContent(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	j, err := h.jobs.Get(id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	handle := j.Handle()
	if handle == nil {
		shared.RespondWithErrorKind(w, r, http.StatusConflict,
			"video is not ready (status "+string(j.Status())+")", "not_ready")
		return
	}

	body, err := handle.Open(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", handle.MIMEType())
	w.Header().Set("Content-Length", strconv.FormatInt(handle.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.WarnContext(r.Context(), "failed to stream video", "job_id", id, "error", err)
	}
}

func toVideoJobResponse(snap domain.JobSnapshot) VideoJobResponse {
	resp := VideoJobResponse{
		ID:          snap.ID.String(),
		Status:      string(snap.Status),
		Model:       snap.Model,
		Prompt:      snap.Prompt,
		AspectRatio: string(snap.AspectRatio),
		Error:       snap.Error,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	if snap.Status == domain.JobStatusCompleted && snap.AssetID != "" {
		resp.ContentURL = "/v1/videos/" + resp.ID + "/content"
	}
	return resp
}
