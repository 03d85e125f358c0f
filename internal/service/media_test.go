package service_test

import (
	"context"
	"testing"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/mocks"
	"github.com/phrazzld/genstudio/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMediaServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")

	_, err := service.NewMediaService(nil, f.registry, &mocks.MockMediaBackend{}, testLogger())
	assert.ErrorIs(t, err, service.ErrMissingDependency)

	_, err = service.NewMediaService(f.executor, f.registry, &mocks.MockMediaBackend{}, nil)
	assert.ErrorIs(t, err, service.ErrMissingDependency)
}

func TestGenerateTextUsesRegistryModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	require.NoError(t, f.registry.Update(context.Background(),
		map[domain.ModelTask]string{domain.TaskText: "custom-text-model"}))

	backend := &mocks.MockMediaBackend{Text: "a short poem"}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	res, err := svc.GenerateText(context.Background(), "write a poem")
	require.NoError(t, err)
	assert.Equal(t, "a short poem", res.Text)
	assert.Equal(t, "custom-text-model", res.Model)
	assert.Equal(t, []string{"custom-text-model"}, backend.Models)
	assert.Equal(t, []string{"primary-key"}, backend.Credentials)
}

func TestGenerateTextRejectsBlankPrompt(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	backend := &mocks.MockMediaBackend{}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	_, err = svc.GenerateText(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
	assert.Zero(t, backend.CallCount())
}

func TestGenerateTextRotatesOnAuthFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key", "backup-key")
	backend := &mocks.MockMediaBackend{
		GenerateTextFn: func(_ context.Context, cred domain.Credential, _, _ string) (string, error) {
			if cred.Role == domain.RolePrimary {
				return "", generation.NewError(generation.KindAuth, "key rejected", nil)
			}
			return "from backup", nil
		},
	}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	res, err := svc.GenerateText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from backup", res.Text)
	assert.Equal(t, []string{"primary-key", "backup-key"}, backend.Credentials)
	assert.Equal(t, 1, f.pool.Position())
}

func TestGenerateTextSurfacesContentPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key", "backup-key")
	backend := &mocks.MockMediaBackend{
		Err: generation.NewError(generation.KindContentPolicy, "blocked", nil),
	}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	_, err = svc.GenerateText(context.Background(), "something risky")
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, 1, backend.CallCount())
}

func TestGenerateImage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	png := domain.Image{Bytes: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	var got domain.ImageRequest
	backend := &mocks.MockMediaBackend{
		GenerateImageFn: func(_ context.Context, _ domain.Credential, _ string, req domain.ImageRequest) (domain.Image, error) {
			got = req
			return png, nil
		},
	}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	req := domain.ImageRequest{Prompt: "a lighthouse", AspectRatio: "16:9"}
	res, err := svc.GenerateImage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, png, res.Image)
	assert.Equal(t, f.registry.Get(domain.TaskImage), res.Model)
	assert.Equal(t, req, got)
}

func TestGenerateImageValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key")
	backend := &mocks.MockMediaBackend{}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	_, err = svc.GenerateImage(context.Background(), domain.ImageRequest{Prompt: "x", AspectRatio: "2:1"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, domain.ErrInvalidAspectRatio)
	assert.Zero(t, backend.CallCount())
}

func TestGenerateImageExhausted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "primary-key", "backup-key")
	backend := &mocks.MockMediaBackend{
		Err: generation.NewError(generation.KindQuota, "quota", nil),
	}
	svc, err := service.NewMediaService(f.executor, f.registry, backend, testLogger())
	require.NoError(t, err)

	_, err = svc.GenerateImage(context.Background(), domain.ImageRequest{Prompt: "a cat"})
	assert.ErrorIs(t, err, generation.ErrAllCredentialsExhausted)
	assert.Equal(t, 2, backend.CallCount())
}
