package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/genstudio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustService(t *testing.T, secret string, lifetime time.Duration, now func() time.Time) *hmacTokenService {
	t.Helper()
	svc, err := newTokenService(secret, lifetime, now)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(config.AuthConfig{JWTSecret: "short", TokenLifetime: time.Hour})
	assert.Error(t, err)

	_, err = NewTokenService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err)

	svc, err := NewTokenService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := mustService(t, testSecret, time.Hour, fixedClock(fixedTime))

	token, err := svc.GenerateToken(context.Background(), "studio-ui")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "studio-ui", claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySubject)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lifetime := time.Hour

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		now     time.Time
		secret  string
		wantErr error
	}{
		{
			name: "valid",
			token: func(t *testing.T) string {
				tok, err := mustService(t, testSecret, lifetime, fixedClock(fixedTime)).GenerateToken(context.Background(), "caller")
				require.NoError(t, err)
				return tok
			},
			now:    fixedTime.Add(30 * time.Minute),
			secret: testSecret,
		},
		{
			name: "expired beyond skew",
			token: func(t *testing.T) string {
				tok, err := mustService(t, testSecret, lifetime, fixedClock(fixedTime)).GenerateToken(context.Background(), "caller")
				require.NoError(t, err)
				return tok
			},
			now:     fixedTime.Add(lifetime + 5*time.Minute),
			secret:  testSecret,
			wantErr: ErrExpiredToken,
		},
		{
			name: "expired within skew",
			token: func(t *testing.T) string {
				tok, err := mustService(t, testSecret, lifetime, fixedClock(fixedTime)).GenerateToken(context.Background(), "caller")
				require.NoError(t, err)
				return tok
			},
			now:    fixedTime.Add(lifetime + time.Minute),
			secret: testSecret,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				tok, err := mustService(t, testSecret, lifetime, fixedClock(fixedTime)).GenerateToken(context.Background(), "caller")
				require.NoError(t, err)
				return tok
			},
			now:     fixedTime,
			secret:  wrongSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "malformed",
			token:   func(*testing.T) string { return "not.a.token" },
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing",
			token:   func(*testing.T) string { return "" },
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrMissingToken,
		},
		{
			name: "not an access token",
			token: func(t *testing.T) string {
				claims := jwtCustomClaims{
					TokenType: "refresh",
					RegisteredClaims: jwt.RegisteredClaims{
						Subject:   "caller",
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
				require.NoError(t, err)
				return tok
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong algorithm",
			token: func(t *testing.T) string {
				claims := jwtCustomClaims{TokenType: tokenType, RegisteredClaims: jwt.RegisteredClaims{Subject: "caller"}}
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
				require.NoError(t, err)
				return tok
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			token := tc.token(t)
			svc := mustService(t, tc.secret, lifetime, fixedClock(tc.now))

			claims, err := svc.ValidateToken(context.Background(), token)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "caller", claims.Subject)
		})
	}
}
