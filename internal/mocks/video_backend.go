package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/genstudio/internal/domain"
)

// MockVideoBackend implements job.VideoBackend for testing
type MockVideoBackend struct {
	// SubmitVideoFn, CheckVideoFn and FetchVideoFn override the default
	// responses when set
	SubmitVideoFn func(ctx context.Context, cred domain.Credential, model string, req domain.VideoRequest) (string, error)
	CheckVideoFn  func(ctx context.Context, cred domain.Credential, operation string) (domain.OperationStatus, error)
	FetchVideoFn  func(ctx context.Context, cred domain.Credential, ref string) (domain.Video, error)

	// Default response values
	Operation string
	Status    domain.OperationStatus
	Video     domain.Video
	Err       error

	mu sync.Mutex

	// Call tracking for verification
	SubmitCalls []SubmitVideoCall
	CheckCalls  []string
	FetchCalls  []string
	Credentials []string
}

// SubmitVideoCall records the arguments of one SubmitVideo call
type SubmitVideoCall struct {
	Model   string
	Request domain.VideoRequest
}

// SubmitVideo implements job.VideoBackend
func (m *MockVideoBackend) SubmitVideo(
	ctx context.Context,
	cred domain.Credential,
	model string,
	req domain.VideoRequest,
) (string, error) {
	m.mu.Lock()
	m.SubmitCalls = append(m.SubmitCalls, SubmitVideoCall{Model: model, Request: req})
	m.Credentials = append(m.Credentials, cred.Secret)
	m.mu.Unlock()

	if m.SubmitVideoFn != nil {
		return m.SubmitVideoFn(ctx, cred, model, req)
	}
	return m.Operation, m.Err
}

// CheckVideo implements job.VideoBackend
func (m *MockVideoBackend) CheckVideo(
	ctx context.Context,
	cred domain.Credential,
	operation string,
) (domain.OperationStatus, error) {
	m.mu.Lock()
	m.CheckCalls = append(m.CheckCalls, operation)
	m.Credentials = append(m.Credentials, cred.Secret)
	m.mu.Unlock()

	if m.CheckVideoFn != nil {
		return m.CheckVideoFn(ctx, cred, operation)
	}
	return m.Status, m.Err
}

// FetchVideo implements job.VideoBackend
func (m *MockVideoBackend) FetchVideo(ctx context.Context, cred domain.Credential, ref string) (domain.Video, error) {
	m.mu.Lock()
	m.FetchCalls = append(m.FetchCalls, ref)
	m.Credentials = append(m.Credentials, cred.Secret)
	m.mu.Unlock()

	if m.FetchVideoFn != nil {
		return m.FetchVideoFn(ctx, cred, ref)
	}
	return m.Video, m.Err
}

// CheckCount returns the number of CheckVideo calls so far
func (m *MockVideoBackend) CheckCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CheckCalls)
}

// FetchCount returns the number of FetchVideo calls so far
func (m *MockVideoBackend) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FetchCalls)
}
