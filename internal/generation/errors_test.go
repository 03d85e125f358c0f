package generation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindAuth, ErrAuthFailure},
		{KindQuota, ErrQuotaExceeded},
		{KindTransient, ErrTransientFailure},
		{KindContentPolicy, ErrContentBlocked},
		{KindEmptyResult, ErrEmptyResult},
		{KindInvalidRequest, ErrInvalidRequest},
		{KindExhausted, ErrAllCredentialsExhausted},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewError(tc.kind, "upstream said no", nil))
			assert.True(t, errors.Is(err, tc.sentinel))
			assert.Equal(t, tc.kind, KindOf(err))
			assert.False(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := &Error{Kind: KindTransient, Code: 503, Status: "UNAVAILABLE", Message: "model overloaded"}
	assert.Equal(t, "transient (503 UNAVAILABLE): model overloaded", err.Error())

	bare := NewError(KindEmptyResult, "", nil)
	assert.Equal(t, "empty_result: generation produced no usable result", bare.Error())
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := NewError(KindTransient, "", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestKindOfUnclassified(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.False(t, KindUnknown.Permanent())
	assert.True(t, KindAuth.Permanent())
	assert.True(t, KindQuota.Permanent())
	assert.False(t, KindTransient.Permanent())
}
