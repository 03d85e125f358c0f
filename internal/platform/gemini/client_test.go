package gemini

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFactory(t *testing.T) {
	t.Parallel()

	_, err := NewClientFactory(ClientConfig{}, nil)
	assert.Error(t, err)

	f, err := NewClientFactory(ClientConfig{BaseURL: "http://localhost:1", Timeout: time.Second}, testLogger())
	require.NoError(t, err)

	client, err := f.acquire(context.Background(), testCred)
	require.NoError(t, err)
	require.IsType(t, genaiAPI{}, client)
	assert.Equal(t, 1, f.Cached())

	cc := client.(genaiAPI).client.ClientConfig()
	require.NotNil(t, cc.HTTPOptions.Timeout)
	assert.Equal(t, time.Second, *cc.HTTPOptions.Timeout)
}

func TestNewClientFactoryWithoutTimeout(t *testing.T) {
	t.Parallel()

	f, err := NewClientFactory(ClientConfig{BaseURL: "http://localhost:1"}, testLogger())
	require.NoError(t, err)

	client, err := f.acquire(context.Background(), testCred)
	require.NoError(t, err)
	require.IsType(t, genaiAPI{}, client)
	assert.Nil(t, client.(genaiAPI).client.ClientConfig().HTTPOptions.Timeout)
}

// TestClientFactoryBuildDoesNotBlockOtherSecrets verifies that a slow
// client build for one secret leaves other secrets usable.
func TestClientFactoryBuildDoesNotBlockOtherSecrets(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	f := newClientFactory(ClientConfig{}, func(_ context.Context, secret string) (api, error) {
		if secret == "slow-key" {
			close(started)
			<-release
		}
		return &fakeAPI{}, nil
	}, testLogger())

	slow := domain.Credential{Secret: "slow-key", Role: domain.RolePrimary, Position: -1}
	fast := domain.Credential{Secret: "fast-key", Role: domain.RoleBackup, Position: 0}

	slowDone := make(chan error, 1)
	go func() {
		_, err := f.acquire(context.Background(), slow)
		slowDone <- err
	}()
	<-started

	fastDone := make(chan error, 1)
	go func() {
		_, err := f.acquire(context.Background(), fast)
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("acquire for another secret waited on a slow build")
	}
	assert.Equal(t, 1, f.Cached())

	close(release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, 2, f.Cached())
}

// TestClientFactoryConcurrentBuildKeepsOneClient verifies that two
// builds racing for the same secret end up sharing one cached client.
func TestClientFactoryConcurrentBuildKeepsOneClient(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	builds := 0
	bothBuilding := make(chan struct{})
	f := newClientFactory(ClientConfig{}, func(context.Context, string) (api, error) {
		mu.Lock()
		builds++
		if builds == 2 {
			close(bothBuilding)
		}
		mu.Unlock()
		<-bothBuilding
		return &fakeAPI{}, nil
	}, testLogger())

	results := make(chan api, 2)
	for range 2 {
		go func() {
			client, err := f.acquire(context.Background(), testCred)
			assert.NoError(t, err)
			results <- client
		}()
	}

	first, second := <-results, <-results
	assert.Same(t, first, second)
	assert.Equal(t, 1, f.Cached())
}

func TestClientFactoryCachesPerSecret(t *testing.T) {
	t.Parallel()

	built := map[string]int{}
	f := newClientFactory(ClientConfig{}, func(_ context.Context, secret string) (api, error) {
		built[secret]++
		return &fakeAPI{}, nil
	}, testLogger())

	a := domain.Credential{Secret: "key-a", Role: domain.RolePrimary, Position: -1}
	b := domain.Credential{Secret: "key-b", Role: domain.RoleBackup, Position: 0}

	first, err := f.acquire(context.Background(), a)
	require.NoError(t, err)
	again, err := f.acquire(context.Background(), a)
	require.NoError(t, err)
	_, err = f.acquire(context.Background(), b)
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Equal(t, map[string]int{"key-a": 1, "key-b": 1}, built)
	assert.Equal(t, 2, f.Cached())

	f.Forget("key-b")
	assert.Equal(t, 1, f.Cached())

	_, err = f.acquire(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, built["key-a"])
}

func TestClientFactoryBuildFailure(t *testing.T) {
	t.Parallel()

	f := newClientFactory(ClientConfig{}, func(context.Context, string) (api, error) {
		return nil, errors.New("boom")
	}, testLogger())

	_, err := f.acquire(context.Background(), testCred)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	assert.NotContains(t, err.Error(), testCred.Secret)
	assert.Equal(t, 0, f.Cached())
}

func TestClientFactoryLimiterPerCredential(t *testing.T) {
	t.Parallel()

	f := newClientFactory(ClientConfig{RequestsPerSecond: 1, Burst: 2}, func(context.Context, string) (api, error) {
		return &fakeAPI{}, nil
	}, testLogger())

	_, limA, err := f.lookup(context.Background(), domain.Credential{Secret: "a"})
	require.NoError(t, err)
	_, limA2, err := f.lookup(context.Background(), domain.Credential{Secret: "a"})
	require.NoError(t, err)
	_, limB, err := f.lookup(context.Background(), domain.Credential{Secret: "b"})
	require.NoError(t, err)

	require.NotNil(t, limA)
	assert.Same(t, limA, limA2)
	assert.NotSame(t, limA, limB)
	assert.Equal(t, 2, limA.Burst())

	unpaced := newClientFactory(ClientConfig{}, func(context.Context, string) (api, error) {
		return &fakeAPI{}, nil
	}, testLogger())
	_, lim, err := unpaced.lookup(context.Background(), domain.Credential{Secret: "a"})
	require.NoError(t, err)
	assert.Nil(t, lim)
}
