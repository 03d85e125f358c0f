// Package domain defines the core generation entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a job is asked to move to a
	// status that is not reachable from its current status.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrEmptyPrompt is returned when a generation request has no prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidAspectRatio is returned for unsupported aspect ratios.
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")
)
