package engine

import (
	"errors"
	"fmt"
)

// OpError represents a recoverable failure of an engine operation.
//
// Nothing in the engine propagates an unrecoverable error through a batch:
// every failure kind is detected, logged, and reported through the return
// value with a code the caller can dispatch on.
type OpError struct {
	// Code identifies the error category.
	Code OpErrorCode

	// Message is a human-readable description.
	Message string

	// Instance names the affected instance, when there is one.
	Instance string

	// Err is the underlying cause, if any.
	Err error
}

// OpErrorCode categorizes engine operation errors.
type OpErrorCode string

const (
	// ErrCodeUnknownInstance indicates a reference to an instance name
	// that is not in the registry.
	ErrCodeUnknownInstance OpErrorCode = "UNKNOWN_INSTANCE"

	// ErrCodeBadInput indicates an input shape the engine cannot
	// interpret.
	ErrCodeBadInput OpErrorCode = "BAD_INPUT"

	// ErrCodeBadTime indicates an uninterpretable date input.
	ErrCodeBadTime OpErrorCode = "BAD_TIME"

	// ErrCodeBadMode indicates an invalid mode or side selector.
	ErrCodeBadMode OpErrorCode = "BAD_MODE"

	// ErrCodeIO indicates a failed import or export.
	ErrCodeIO OpErrorCode = "IO_ERROR"
)

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Instance != "" {
		return fmt.Sprintf("%s: %s (instance=%s)", e.Code, e.Message, e.Instance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error { return e.Err }

// IsUnknownInstance reports whether err is an unknown-instance reference.
// Uses errors.As to handle wrapped errors.
func IsUnknownInstance(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == ErrCodeUnknownInstance
}

func newUnknownInstance(name string) *OpError {
	return &OpError{
		Code:     ErrCodeUnknownInstance,
		Message:  "instance does not exist; create it first or name an existing one",
		Instance: name,
	}
}
