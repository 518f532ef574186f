// Package apperr defines the error taxonomy shared by the application
// services and the HTTP boundary. Handlers map each category to a status
// code with errors.Is; services attach context with the *f constructors.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when request input fails a required-field
	// or format check before any state is touched.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthorized is returned when the caller is authenticated but is
	// not permitted to act: not the current-step approver, or outside the
	// document's organization.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound is returned when the document, workflow or step does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness or state guard rejects the
	// write: a second active workflow, or the losing side of a concurrent
	// decision race.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState is returned when an operation targets a workflow that
	// is already terminal.
	ErrInvalidState = errors.New("invalid workflow state")

	// ErrStorage marks a blob store failure. Attachment uploads are
	// best-effort, so callers log this and continue.
	ErrStorage = errors.New("storage failure")

	// ErrPersistence marks an activity-log write failure. Log appends are
	// fire-and-forget, so this never reaches the HTTP caller.
	ErrPersistence = errors.New("persistence failure")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

// NotAuthorizedf wraps ErrNotAuthorized with a formatted message.
func NotAuthorizedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrNotAuthorized, args)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrNotFound, args)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrConflict, args)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInvalidState, args)...)
}

func prepend(err error, args []interface{}) []interface{} {
	return append([]interface{}{err}, args...)
}
