package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/genstudio/internal/api/shared"
	"github.com/phrazzld/genstudio/internal/asset"
	"github.com/phrazzld/genstudio/internal/domain"
	"github.com/phrazzld/genstudio/internal/generation"
	"github.com/phrazzld/genstudio/internal/job"
	"github.com/phrazzld/genstudio/internal/redact"
	"github.com/phrazzld/genstudio/internal/service"
	"github.com/phrazzld/genstudio/internal/store"
)

// genericErrorMessage is sent for errors that carry nothing the caller
// can act on.
const genericErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, job.ErrJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, asset.ErrReleased):
		return http.StatusGone

	case errors.Is(err, job.ErrShuttingDown):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	switch generation.KindOf(err) {
	case generation.KindContentPolicy:
		return http.StatusUnprocessableEntity
	case generation.KindInvalidRequest:
		return http.StatusBadRequest
	case generation.KindAuth, generation.KindQuota, generation.KindTransient,
		generation.KindEmptyResult, generation.KindExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKind returns the machine-readable kind reported with err, or "".
func ErrorKind(err error) string {
	if kind := generation.KindOf(err); kind != generation.KindUnknown {
		return kind.String()
	}
	switch {
	case errors.Is(err, shared.ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, job.ErrJobNotFound):
		return "not_found"
	}
	return ""
}

// GetSafeErrorMessage returns the message sent to the caller. Errors
// the caller can act on are passed through redacted; anything else gets
// a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return genericErrorMessage
	}
	if MapErrorToStatusCode(err) == http.StatusInternalServerError {
		return genericErrorMessage
	}
	return redact.Error(err)
}

// HandleAPIError writes the error response for err and logs it.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), ErrorKind(err), err)
}
