package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/redact"
	"google.golang.org/genai"
)

// maxFetchBytes caps a video downloaded over plain HTTP.
const maxFetchBytes = 512 << 20

// blockedFinishReasons end a text response because of content safety.
var blockedFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonSPII:              true,
	genai.FinishReasonImageSafety:       true,
}

// Service performs single remote calls with one credential. It
// implements job.VideoBackend and the text and image backends used by
// the media service.
type Service struct {
	clients  *ClientFactory
	policy   ClassifyPolicy
	maxFetch int64
	logger   *slog.Logger
}

// NewService creates a Service.
//
// Parameters:
//   - clients: builds the per-credential client
//   - policy: decides how throttling is classified
//   - logger: a structured logger
//
// Returns:
//   - A ready Service or an error if a dependency is missing
func NewService(clients *ClientFactory, policy ClassifyPolicy, logger *slog.Logger) (*Service, error) {
	if clients == nil {
		return nil, fmt.Errorf("%w: client factory cannot be nil", generation.ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Service{
		clients:  clients,
		policy:   policy,
		maxFetch: maxFetchBytes,
		logger:   logger.With("component", "gemini_service"),
	}, nil
}

// SubmitVideo starts a video generation and returns its operation name.
func (s *Service) SubmitVideo(
	ctx context.Context,
	cred domain.Credential,
	model string,
	req domain.VideoRequest,
) (string, error) {
	client, err := s.clients.acquire(ctx, cred)
	if err != nil {
		return "", err
	}

	var image *genai.Image
	if req.SourceImage != nil {
		image = &genai.Image{
			ImageBytes: req.SourceImage.Bytes,
			MIMEType:   req.SourceImage.MIMEType,
		}
	}

	s.logger.DebugContext(ctx, "submitting video generation",
		"credential", cred,
		"model", model,
		"aspect_ratio", req.AspectRatio,
		"has_source_image", image != nil,
		"prompt_length", len(req.Prompt))

	op, err := client.GenerateVideos(ctx, model, req.Prompt, image, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    string(req.AspectRatio),
	})
	if err != nil {
		return "", s.classify(ctx, "submit video", cred, err)
	}
	if op == nil || op.Name == "" {
		return "", &generation.Error{
			Kind:    generation.KindEmptyResult,
			Message: "video submission returned no operation",
		}
	}

	s.logger.InfoContext(ctx, "video generation submitted",
		"credential", cred,
		"operation", op.Name)

	return op.Name, nil
}

// CheckVideo reports the status of a video operation.
func (s *Service) CheckVideo(
	ctx context.Context,
	cred domain.Credential,
	operation string,
) (domain.OperationStatus, error) {
	client, err := s.clients.acquire(ctx, cred)
	if err != nil {
		return domain.OperationStatus{}, err
	}

	op, err := client.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operation})
	if err != nil {
		return domain.OperationStatus{}, s.classify(ctx, "check video", cred, err)
	}
	if op == nil {
		return domain.OperationStatus{}, &generation.Error{
			Kind:    generation.KindEmptyResult,
			Message: "operation status response was empty",
		}
	}

	status := domain.OperationStatus{Done: op.Done, Operation: op.Name}
	if status.Operation == "" {
		status.Operation = operation
	}
	if !op.Done {
		return status, nil
	}

	if len(op.Error) > 0 {
		classified := s.policy.classifyOperationError(op.Error)
		s.logger.WarnContext(ctx, "video operation finished with error",
			"credential", cred,
			"operation", status.Operation,
			"kind", classified.Kind,
			"status", classified.Status)
		return domain.OperationStatus{}, classified
	}

	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v != nil && v.Video != nil && v.Video.URI != "" {
				status.ResultRef = v.Video.URI
				break
			}
		}
		if status.ResultRef == "" && op.Response.RAIMediaFilteredCount > 0 {
			msg := "video was filtered by content safety"
			if reasons := op.Response.RAIMediaFilteredReasons; len(reasons) > 0 {
				msg = strings.Join(reasons, "; ")
			}
			return domain.OperationStatus{}, &generation.Error{
				Kind:    generation.KindContentPolicy,
				Message: msg,
			}
		}
	}

	return status, nil
}

// FetchVideo downloads a finished video. References to service files go
// through the genai file API; any other URL is fetched directly with the
// credential in the key query parameter.
func (s *Service) FetchVideo(ctx context.Context, cred domain.Credential, ref string) (domain.Video, error) {
	if ref == "" {
		return domain.Video{}, &generation.Error{
			Kind:    generation.KindEmptyResult,
			Message: "no video reference to download",
		}
	}

	client, err := s.clients.acquire(ctx, cred)
	if err != nil {
		return domain.Video{}, err
	}

	var data []byte
	if isServiceFile(ref) {
		data, err = client.Download(ctx, genai.NewDownloadURIFromVideo(&genai.Video{URI: ref}))
	} else {
		data, err = s.fetchURL(ctx, cred, ref)
	}
	if err != nil {
		return domain.Video{}, s.classify(ctx, "fetch video", cred, err)
	}
	if len(data) == 0 {
		return domain.Video{}, &generation.Error{
			Kind:    generation.KindEmptyResult,
			Message: "downloaded video is empty",
		}
	}

	s.logger.InfoContext(ctx, "video downloaded",
		"credential", cred,
		"bytes", len(data))

	return domain.Video{Bytes: data, MIMEType: videoMIMEType(data)}, nil
}

// GenerateText runs a single text generation.
func (s *Service) GenerateText(ctx context.Context, cred domain.Credential, model, prompt string) (string, error) {
	client, err := s.clients.acquire(ctx, cred)
	if err != nil {
		return "", err
	}

	resp, err := client.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", s.classify(ctx, "generate text", cred, err)
	}
	if resp == nil {
		return "", &generation.Error{Kind: generation.KindEmptyResult, Message: "nil response"}
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		msg := fb.BlockReasonMessage
		if msg == "" {
			msg = fmt.Sprintf("prompt blocked: %s", fb.BlockReason)
		}
		return "", &generation.Error{Kind: generation.KindContentPolicy, Message: msg}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", &generation.Error{Kind: generation.KindEmptyResult, Message: "no content generated"}
	}

	candidate := resp.Candidates[0]
	if blockedFinishReasons[candidate.FinishReason] {
		return "", &generation.Error{
			Kind:    generation.KindContentPolicy,
			Message: fmt.Sprintf("response blocked: %s", candidate.FinishReason),
		}
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", &generation.Error{Kind: generation.KindEmptyResult, Message: "empty content in response"}
	}

	return text.String(), nil
}

// GenerateImage runs a single image generation and returns the first
// image.
func (s *Service) GenerateImage(
	ctx context.Context,
	cred domain.Credential,
	model string,
	req domain.ImageRequest,
) (domain.Image, error) {
	client, err := s.clients.acquire(ctx, cred)
	if err != nil {
		return domain.Image{}, err
	}

	resp, err := client.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      req.AspectRatio,
		IncludeRAIReason: true,
	})
	if err != nil {
		return domain.Image{}, s.classify(ctx, "generate image", cred, err)
	}

	var filtered string
	if resp != nil {
		for _, gi := range resp.GeneratedImages {
			if gi == nil {
				continue
			}
			if gi.Image != nil && len(gi.Image.ImageBytes) > 0 {
				mimeType := gi.Image.MIMEType
				if mimeType == "" {
					mimeType = http.DetectContentType(gi.Image.ImageBytes)
				}
				return domain.Image{Bytes: gi.Image.ImageBytes, MIMEType: mimeType}, nil
			}
			if gi.RAIFilteredReason != "" && filtered == "" {
				filtered = gi.RAIFilteredReason
			}
		}
	}

	if filtered != "" {
		return domain.Image{}, &generation.Error{Kind: generation.KindContentPolicy, Message: filtered}
	}
	return domain.Image{}, &generation.Error{Kind: generation.KindEmptyResult, Message: "no image generated"}
}

// fetchURL downloads ref with the credential appended as a query
// parameter.
func (s *Service) fetchURL(ctx context.Context, cred domain.Credential, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, &generation.Error{
			Kind:    generation.KindInvalidRequest,
			Message: "invalid video reference",
			Err:     err,
		}
	}
	q := u.Query()
	q.Set("key", cred.Secret)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.clients.config.HTTPClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = ref
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, genai.APIError{
			Code:    resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
			Status:  http.StatusText(resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxFetch+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxFetch {
		return nil, &generation.Error{
			Kind:    generation.KindEmptyResult,
			Message: fmt.Sprintf("video exceeds the %d byte download limit", s.maxFetch),
		}
	}
	return data, nil
}

// classify maps err into the generation taxonomy and logs it without
// leaking the secret.
func (s *Service) classify(ctx context.Context, op string, cred domain.Credential, err error) error {
	classified := s.policy.Classify(err)

	kind := generation.KindOf(classified)
	s.logger.DebugContext(ctx, "remote call failed",
		"operation", op,
		"credential", cred,
		"kind", kind,
		"error", redact.Secrets(classified.Error(), cred.Secret))

	return classified
}

func isServiceFile(ref string) bool {
	if strings.HasPrefix(ref, "files/") {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, "/files/")
}

// videoMIMEType sniffs data and falls back to MP4, the service's output
// format.
func videoMIMEType(data []byte) string {
	if detected := http.DetectContentType(data); strings.HasPrefix(detected, "video/") {
		return detected
	}
	return "video/mp4"
}
