package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/redact"
)

// Runner executes one unit of remote work with retry and credential
// rotation. *generation.Executor implements it.
type Runner interface {
	Do(ctx context.Context, work generation.Work) error
}

// ModelSource resolves the model for a task. *registry.Registry
// implements it.
type ModelSource interface {
	Get(task domain.ModelTask) string
}

// MediaBackend performs single text and image calls. Each method is one
// attempt with one credential. *gemini.Service implements it.
type MediaBackend interface {
	GenerateText(ctx context.Context, cred domain.Credential, model, prompt string) (string, error)
	GenerateImage(ctx context.Context, cred domain.Credential, model string, req domain.ImageRequest) (domain.Image, error)
}

// TextResult is the outcome of a text generation.
type TextResult struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// ImageResult is the outcome of an image generation.
type ImageResult struct {
	Model string
	Image domain.Image
}

// MediaService runs one-shot generations.
type MediaService struct {
	runner  Runner
	models  ModelSource
	backend MediaBackend
	logger  *slog.Logger
}

// NewMediaService creates a MediaService.
func NewMediaService(runner Runner, models ModelSource, backend MediaBackend, logger *slog.Logger) (*MediaService, error) {
	if runner == nil || models == nil || backend == nil {
		return nil, fmt.Errorf("%w: runner, model source and backend are required", ErrMissingDependency)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}
	return &MediaService{
		runner:  runner,
		models:  models,
		backend: backend,
		logger:  logger.With("component", "media_service"),
	}, nil
}

// GenerateText answers prompt with the model configured for the text
// task. Errors are the executor's classified errors.
func (s *MediaService) GenerateText(ctx context.Context, prompt string) (TextResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return TextResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, domain.ErrEmptyPrompt)
	}

	model := s.models.Get(domain.TaskText)
	var text string
	err := s.runner.Do(ctx, func(ctx context.Context, cred domain.Credential) error {
		out, err := s.backend.GenerateText(ctx, cred, model, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "text generation failed", "model", model, "error", redact.Error(err))
		return TextResult{}, err
	}

	s.logger.InfoContext(ctx, "text generated", "model", model, "length", len(text))
	return TextResult{Model: model, Text: text}, nil
}

// GenerateImage renders req with the model configured for the image task.
func (s *MediaService) GenerateImage(ctx context.Context, req domain.ImageRequest) (ImageResult, error) {
	if err := req.Validate(); err != nil {
		return ImageResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	model := s.models.Get(domain.TaskImage)

	var img domain.Image
	err := s.runner.Do(ctx, func(ctx context.Context, cred domain.Credential) error {
		out, err := s.backend.GenerateImage(ctx, cred, model, req)
		if err != nil {
			return err
		}
		img = out
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "image generation failed", "model", model, "error", redact.Error(err))
		return ImageResult{}, err
	}

	s.logger.InfoContext(ctx, "image generated",
		"model", model,
		"mime_type", img.MIMEType,
		"bytes", len(img.Bytes))
	return ImageResult{Model: model, Image: img}, nil
}
