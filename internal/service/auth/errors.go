package auth

import "errors"

// Token validation failures. Middleware maps ErrExpiredToken to its own
// message; the rest are reported as an invalid token.
var (
	ErrMissingToken     = errors.New("token is missing")
	ErrInvalidToken     = errors.New("token is invalid")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not valid yet")
	ErrEmptySubject     = errors.New("token subject cannot be empty")
)
