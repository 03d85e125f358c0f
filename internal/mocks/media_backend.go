package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/genstudio/internal/domain"
)

// MockMediaBackend implements service.MediaBackend for testing
type MockMediaBackend struct {
	// GenerateTextFn and GenerateImageFn override the default responses
	// when set
	GenerateTextFn  func(ctx context.Context, cred domain.Credential, model, prompt string) (string, error)
	GenerateImageFn func(ctx context.Context, cred domain.Credential, model string, req domain.ImageRequest) (domain.Image, error)

	// Default response values
	Text  string
	Image domain.Image
	Err   error

	mu sync.Mutex

	// Call tracking for verification
	Models      []string
	Credentials []string
}

// GenerateText implements service.MediaBackend
func (m *MockMediaBackend) GenerateText(ctx context.Context, cred domain.Credential, model, prompt string) (string, error) {
	m.track(cred, model)
	if m.GenerateTextFn != nil {
		return m.GenerateTextFn(ctx, cred, model, prompt)
	}
	return m.Text, m.Err
}

// GenerateImage implements service.MediaBackend
func (m *MockMediaBackend) GenerateImage(
	ctx context.Context,
	cred domain.Credential,
	model string,
	req domain.ImageRequest,
) (domain.Image, error) {
	m.track(cred, model)
	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, cred, model, req)
	}
	return m.Image, m.Err
}

// CallCount returns the number of calls so far
func (m *MockMediaBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Credentials)
}

func (m *MockMediaBackend) track(cred domain.Credential, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Models = append(m.Models, model)
	m.Credentials = append(m.Credentials, cred.Secret)
}
