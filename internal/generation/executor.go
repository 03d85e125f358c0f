package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/platform/clock"
)

// MaxServerRetries is the default number of retries on the same
// credential after a transient failure.
const MaxServerRetries = 2

// CredentialSource provides the credential for each attempt.
// credential.Pool implements it.
type CredentialSource interface {
	// Current returns the credential for the next attempt.
	Current() (domain.Credential, error)

	// Rotate advances to the next credential.
	Rotate()

	// Size returns the number of configured credentials.
	Size() int
}

// Work performs exactly one remote call using cred. Failures should be
// returned as *Error so the Executor can classify them.
type Work func(ctx context.Context, cred domain.Credential) error

// ExecutorConfig holds the retry policy.
type ExecutorConfig struct {
	// MaxServerRetries is the number of retries on one credential after
	// transient failures, so each credential gets MaxServerRetries+1 attempts.
	MaxServerRetries int

	// BaseDelay is multiplied by 2^retry to get the backoff before a retry.
	BaseDelay time.Duration

	// MaxJitter bounds the random delay added to each backoff.
	MaxJitter time.Duration
}

// DefaultExecutorConfig returns the standard policy: 2 retries, waiting
// 2^retry seconds plus up to one second of jitter.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxServerRetries: MaxServerRetries,
		BaseDelay:        time.Second,
		MaxJitter:        time.Second,
	}
}

// Executor runs units of work against a credential pool with bounded
// retry and rotation. Attempts within one call are strictly sequential.
type Executor struct {
	pool   CredentialSource
	clock  clock.Clock
	config ExecutorConfig
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewExecutor creates an Executor. Invalid config values fall back to
// DefaultExecutorConfig.
func NewExecutor(pool CredentialSource, clk clock.Clock, config ExecutorConfig, logger *slog.Logger) (*Executor, error) {
	if pool == nil {
		return nil, errors.New("credential source cannot be nil")
	}
	if clk == nil {
		return nil, errors.New("clock cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	defaults := DefaultExecutorConfig()
	if config.MaxServerRetries < 0 {
		logger.Warn("invalid max server retries, using default",
			"max_server_retries", defaults.MaxServerRetries)
		config.MaxServerRetries = defaults.MaxServerRetries
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = defaults.BaseDelay
	}
	if config.MaxJitter < 0 {
		config.MaxJitter = defaults.MaxJitter
	}

	return &Executor{
		pool:   pool,
		clock:  clk,
		config: config,
		logger: logger.With("component", "request_executor"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Do runs work until it succeeds, fails with a non-retryable error, or
// every credential is exhausted. It makes at most
// Size() * (MaxServerRetries+1) calls.
//
// Permanent failures (auth, quota) rotate to the next credential at once.
// Transient failures retry the same credential after Backoff(retry), then
// rotate. Any other failure is returned unchanged. When no credential
// succeeds the result is an *Error of KindExhausted wrapping the last
// failure.
func (e *Executor) Do(ctx context.Context, work Work) error {
	total := e.pool.Size()
	maxRetries := e.config.MaxServerRetries
	attempts := 0
	var lastErr error

	if total == 0 {
		return e.exhausted(ctx, total, attempts, errors.New("no credentials configured"))
	}

	for keyAttempt := 0; keyAttempt < total; keyAttempt++ {
	retryLoop:
		for serverRetry := 0; serverRetry <= maxRetries; {
			if err := ctx.Err(); err != nil {
				return err
			}

			cred, err := e.pool.Current()
			if err != nil {
				return e.exhausted(ctx, total, attempts, errors.Join(lastErr, err))
			}

			attempts++
			err = work(ctx, cred)
			if err == nil {
				e.logger.DebugContext(ctx, "remote call succeeded",
					"credential", cred,
					"attempt", attempts)
				return nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %w", ctxErr, err)
			}
			lastErr = err

			kind := KindOf(err)
			switch {
			case kind.Permanent():
				e.logger.WarnContext(ctx, "credential failed permanently, rotating",
					"credential", cred,
					"kind", kind,
					"attempt", attempts,
					"error", err)
				break retryLoop

			case kind == KindTransient:
				serverRetry++
				if serverRetry > maxRetries {
					e.logger.WarnContext(ctx, "maximum server retries reached for credential",
						"credential", cred,
						"max_server_retries", maxRetries)
					break retryLoop
				}

				delay := e.Backoff(serverRetry)
				e.logger.InfoContext(ctx, "retrying after delay",
					"credential", cred,
					"attempt", attempts,
					"server_retry", serverRetry,
					"delay", delay)

				if err := e.clock.Sleep(ctx, delay); err != nil {
					return err
				}

			default:
				e.logger.InfoContext(ctx, "non-retryable error, not retrying",
					"credential", cred,
					"kind", kind,
					"attempt", attempts)
				return err
			}
		}

		if keyAttempt < total-1 {
			e.pool.Rotate()
		}
	}

	return e.exhausted(ctx, total, attempts, lastErr)
}

// Backoff returns the wait before server retry number retry (1-based):
// BaseDelay * 2^retry plus a random jitter below MaxJitter.
func (e *Executor) Backoff(retry int) time.Duration {
	base := time.Duration(float64(e.config.BaseDelay) * math.Pow(2, float64(retry)))

	var jitter time.Duration
	if e.config.MaxJitter > 0 {
		e.rngMu.Lock()
		jitter = time.Duration(e.rng.Int63n(int64(e.config.MaxJitter)))
		e.rngMu.Unlock()
	}

	return base + jitter
}

func (e *Executor) exhausted(ctx context.Context, total, attempts int, cause error) error {
	msg := fmt.Sprintf("%s after %d attempts across %d credentials",
		ErrAllCredentialsExhausted, attempts, total)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}

	e.logger.ErrorContext(ctx, "all credentials exhausted",
		"attempts", attempts,
		"credentials", total,
		"error", cause)

	return &Error{Kind: KindExhausted, Message: msg, Err: cause}
}

// Execute runs work through e and returns its result. It is the typed
// form of Executor.Do.
func Execute[T any](ctx context.Context, e *Executor, work func(ctx context.Context, cred domain.Credential) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, func(ctx context.Context, cred domain.Credential) error {
		r, err := work(ctx, cred)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
