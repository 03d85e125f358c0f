package generation

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call.
type Kind int

// Error kinds. The zero value is KindUnknown, which the Executor treats
// as non-retryable.
const (
	KindUnknown Kind = iota
	// KindAuth: invalid credential or forbidden. Rotate.
	KindAuth
	// KindQuota: quota or rate ceiling reached for this credential. Rotate.
	KindQuota
	// KindTransient: upstream temporarily unavailable. Retry with backoff.
	KindTransient
	// KindContentPolicy: rejected by upstream content safety. Surface.
	KindContentPolicy
	// KindEmptyResult: call succeeded but produced no usable artifact. Surface.
	KindEmptyResult
	// KindInvalidRequest: the request itself was rejected. Surface.
	KindInvalidRequest
	// KindExhausted: every credential was tried. Terminal.
	KindExhausted
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindAuth:           "auth",
	KindQuota:          "quota",
	KindTransient:      "transient",
	KindContentPolicy:  "content_policy",
	KindEmptyResult:    "empty_result",
	KindInvalidRequest: "invalid_request",
	KindExhausted:      "exhausted",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Permanent reports whether the failure is tied to the credential and
// should trigger rotation.
func (k Kind) Permanent() bool {
	return k == KindAuth || k == KindQuota
}

// Common errors returned by the generation package. Each *Error matches
// the sentinel of its Kind with errors.Is.
var (
	// ErrAuthFailure is returned when the credential is invalid or forbidden
	ErrAuthFailure = errors.New("credential rejected by generation service")

	// ErrQuotaExceeded is returned when the credential hit a quota or rate ceiling
	ErrQuotaExceeded = errors.New("quota exceeded for credential")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error from generation service")

	// ErrContentBlocked is returned when the service blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrEmptyResult is returned when a call succeeds but yields nothing usable
	ErrEmptyResult = errors.New("generation produced no usable result")

	// ErrInvalidRequest is returned when the service rejects the request itself
	ErrInvalidRequest = errors.New("request rejected by generation service")

	// ErrAllCredentialsExhausted is returned when every credential has been tried
	ErrAllCredentialsExhausted = errors.New("all credentials exhausted")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

var kindSentinels = map[Kind]error{
	KindAuth:           ErrAuthFailure,
	KindQuota:          ErrQuotaExceeded,
	KindTransient:      ErrTransientFailure,
	KindContentPolicy:  ErrContentBlocked,
	KindEmptyResult:    ErrEmptyResult,
	KindInvalidRequest: ErrInvalidRequest,
	KindExhausted:      ErrAllCredentialsExhausted,
}

// Error is a classified failure from the remote service.
type Error struct {
	// Kind drives retry and rotation decisions.
	Kind Kind

	// Code is the upstream HTTP status code, if any.
	Code int

	// Status is the upstream machine-readable status, e.g. "UNAVAILABLE".
	Status string

	// Message is the upstream message, suitable for showing to a user.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// NewError creates a classified error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		if sentinel, ok := kindSentinels[e.Kind]; ok {
			msg = sentinel.Error()
		} else if e.Err != nil {
			msg = e.Err.Error()
		}
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s (%d %s): %s", e.Kind, e.Code, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the error's Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindUnknown
}
