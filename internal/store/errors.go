package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrJobNotFound is returned by JobStore.GetJob for an unknown ID.
	ErrJobNotFound = fmt.Errorf("job %w", ErrNotFound)

	// ErrSettingNotFound means the key was never written. SettingsStore
	// implementations translate it into an empty value.
	ErrSettingNotFound = fmt.Errorf("setting %w", ErrNotFound)
)

// IsNotFoundError reports whether err is, or wraps, ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError records which persisted entity an operation failed on.
// Driver errors are mapped to the sentinels above before being wrapped,
// so callers can keep using errors.Is.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Entity, e.Operation, e.Message)
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err with the entity and operation it failed on.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
