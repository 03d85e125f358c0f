package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/generation"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// api is the subset of the genai client used by Service. It is bound to
// one credential.
type api interface {
	GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, uri genai.DownloadURI) ([]byte, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// genaiAPI adapts *genai.Client to api.
type genaiAPI struct {
	client *genai.Client
}

func (g genaiAPI) GenerateVideos(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return g.client.Models.GenerateVideos(ctx, model, prompt, image, config)
}

func (g genaiAPI) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return g.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (g genaiAPI) Download(ctx context.Context, uri genai.DownloadURI) ([]byte, error) {
	return g.client.Files.Download(ctx, uri, nil)
}

func (g genaiAPI) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.client.Models.GenerateContent(ctx, model, contents, config)
}

func (g genaiAPI) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return g.client.Models.GenerateImages(ctx, model, prompt, config)
}

// ClientConfig configures how clients are built.
type ClientConfig struct {
	// BaseURL overrides the service endpoint. Empty uses the default.
	BaseURL string

	// RequestsPerSecond paces calls made with one credential. Zero or
	// less disables pacing.
	RequestsPerSecond float64

	// Burst is the number of calls allowed at once before pacing applies.
	Burst int

	// Timeout bounds each HTTP request. Zero leaves it to the context.
	Timeout time.Duration

	// HTTPClient is used for every request. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// newAPIFunc builds an api bound to one secret.
type newAPIFunc func(ctx context.Context, secret string) (api, error)

// ClientFactory builds and caches one client per credential secret and
// paces calls per credential.
type ClientFactory struct {
	config ClientConfig
	newAPI newAPIFunc
	logger *slog.Logger

	mu       sync.Mutex
	clients  map[string]api
	limiters map[string]*rate.Limiter
}

// NewClientFactory creates a ClientFactory that talks to the real
// service.
func NewClientFactory(config ClientConfig, logger *slog.Logger) (*ClientFactory, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	f := newClientFactory(config, nil, logger)
	f.newAPI = f.dial
	return f, nil
}

func newClientFactory(config ClientConfig, newAPI newAPIFunc, logger *slog.Logger) *ClientFactory {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Burst < 1 {
		config.Burst = 1
	}

	return &ClientFactory{
		config:   config,
		newAPI:   newAPI,
		logger:   logger.With("component", "gemini_client_factory"),
		clients:  make(map[string]api),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *ClientFactory) dial(ctx context.Context, secret string) (api, error) {
	cc := &genai.ClientConfig{
		APIKey:     secret,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: f.config.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: f.config.BaseURL,
		},
	}
	if f.config.Timeout > 0 {
		timeout := f.config.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return genaiAPI{client: client}, nil
}

// acquire waits for the credential's rate limiter and returns its client.
func (f *ClientFactory) acquire(ctx context.Context, cred domain.Credential) (api, error) {
	if cred.Secret == "" {
		return nil, &generation.Error{
			Kind:    generation.KindAuth,
			Message: fmt.Sprintf("credential %s is empty", cred),
		}
	}

	client, limiter, err := f.lookup(ctx, cred)
	if err != nil {
		return nil, err
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("rate limiter for %s: %w", cred, err)
		}
	}

	return client, nil
}

// lookup returns the cached client for cred, building one if needed.
// The build runs without f.mu held; when two builds race for the same
// secret the first one stored wins.
func (f *ClientFactory) lookup(ctx context.Context, cred domain.Credential) (api, *rate.Limiter, error) {
	f.mu.Lock()
	client, ok := f.clients[cred.Secret]
	f.mu.Unlock()

	var built api
	if !ok {
		var err error
		built, err = f.newAPI(ctx, cred.Secret)
		if err != nil {
			f.logger.ErrorContext(ctx, "failed to create generation client",
				"credential", cred,
				"error", err)
			return nil, nil, fmt.Errorf("%w: failed to create client for %s: %v",
				generation.ErrInvalidConfig, cred, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !ok {
		if existing, found := f.clients[cred.Secret]; found {
			client = existing
		} else {
			client = built
			f.clients[cred.Secret] = client
			f.logger.DebugContext(ctx, "created generation client", "credential", cred)
		}
	}

	var limiter *rate.Limiter
	if f.config.RequestsPerSecond > 0 {
		limiter, ok = f.limiters[cred.Secret]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(f.config.RequestsPerSecond), f.config.Burst)
			f.limiters[cred.Secret] = limiter
		}
	}

	return client, limiter, nil
}

// Forget drops cached clients whose secret is not in keep. It is called
// after the backup list is replaced.
func (f *ClientFactory) Forget(keep ...string) {
	wanted := make(map[string]bool, len(keep))
	for _, s := range keep {
		wanted[s] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for secret := range f.clients {
		if !wanted[secret] {
			delete(f.clients, secret)
			delete(f.limiters, secret)
		}
	}
}

// Cached returns the number of cached clients.
func (f *ClientFactory) Cached() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
