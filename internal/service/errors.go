package service

import "errors"

// Common service errors. Callers check for them with errors.Is; the API
// layer maps them to HTTP status codes.
var (
	// ErrInvalidInput is returned when a request fails validation before
	// any remote call is made. API layer should map this to 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingDependency is returned by constructors when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("missing service dependency")
)
