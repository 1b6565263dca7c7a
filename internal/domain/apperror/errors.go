// Package apperror defines the error taxonomy surfaced by the recruitment engine.
//
// Callers distinguish failures with errors.Is against the sentinels and recover
// details with errors.As against the concrete types.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrPreconditionNotMet is matched by every PreconditionError
	ErrPreconditionNotMet = errors.New("precondition not met")

	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrRetryable is matched by every RetryableError
	ErrRetryable = errors.New("retryable failure")
)

// ValidationError reports missing or malformed operator input
type ValidationError struct {
	Field   string
	Message string
}

// Validation creates a ValidationError for a field
func Validation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PreconditionError reports an action attempted before its gating condition holds.
// Unmet lists every condition that failed, in evaluation order.
type PreconditionError struct {
	Action string
	Unmet  []string
}

// Precondition creates a PreconditionError
func Precondition(action string, unmet ...string) *PreconditionError {
	return &PreconditionError{Action: action, Unmet: unmet}
}

func (e *PreconditionError) Error() string {
	if len(e.Unmet) == 0 {
		return fmt.Sprintf("%s: precondition not met", e.Action)
	}
	return fmt.Sprintf("%s: precondition not met: %s", e.Action, strings.Join(e.Unmet, "; "))
}

// Is reports whether target is ErrPreconditionNotMet
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionNotMet
}

// NotFoundError reports a reference to a nonexistent record
type NotFoundError struct {
	Entity string
	ID     interface{}
}

// NotFound creates a NotFoundError
func NotFound(entity string, id interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// Is reports whether target is ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RetryableError reports a degraded outcome (timeout, exhausted retries).
// State is left at its last known good value and the caller may try again.
type RetryableError struct {
	Op  string
	Err error
}

// Retryable wraps err as a RetryableError
func Retryable(op string, err error) *RetryableError {
	return &RetryableError{Op: op, Err: err}
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: retryable: %v", e.Op, e.Err)
}

// Is reports whether target is ErrRetryable
func (e *RetryableError) Is(target error) bool {
	return target == ErrRetryable
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// UnmetConditions returns the unmet conditions carried by err, if any
func UnmetConditions(err error) []string {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Unmet
	}
	return nil
}
