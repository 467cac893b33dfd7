// Package apperror defines the error taxonomy shared by the reservation
// engine and its HTTP layer.  Every error carries enough detail for the
// caller to act on it (which field, which id, which state).  Handlers use
// errors.As to pick the response code; nothing in the engine retries.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed input.  Field names the
// offending request field using its JSON name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation is shorthand for building a ValidationError.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports an unknown hall, booking or pricing rule.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// NotFound is shorthand for building a NotFoundError.
func NotFound(resource string, id uint64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// AuthorizationError is returned when the caller is neither the owner of a
// booking nor an admin, or when a non-admin calls an admin-only operation.
// Unauthenticated is set when no identity was supplied at all.
type AuthorizationError struct {
	Reason          string
	Unauthenticated bool
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return e.Reason
}

// Forbidden is shorthand for building an AuthorizationError.
func Forbidden(reason string) error {
	return &AuthorizationError{Reason: reason}
}

// ConflictError signals that a date range cannot be reserved, either
// because the calendar marks a day unavailable or because another blocking
// booking overlaps it.  Dates are formatted YYYY-MM-DD.
type ConflictError struct {
	HallID uint64
	Start  string
	End    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hall %d is not available from %s to %s: %s", e.HallID, e.Start, e.End, e.Reason)
}

// InvalidStateTransitionError is returned when a lifecycle action is not
// permitted from the booking's current status.
type InvalidStateTransitionError struct {
	BookingID uint64
	From      string
	Action    string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("booking %d: cannot %s from status %s", e.BookingID, e.Action, e.From)
}

// InfraError wraps storage or broker failures.  Op describes what the
// engine was doing when the failure happened.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *InfraError) Unwrap() error { return e.Err }

// Infra wraps err as an InfraError unless it already belongs to the
// taxonomy, in which case it is returned unchanged.  A nil err stays nil.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var ie *InfraError
	if errors.As(err, &ie) {
		return err
	}
	return &InfraError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the caller-facing error types.
func IsDomain(err error) bool {
	var (
		ve *ValidationError
		ne *NotFoundError
		ae *AuthorizationError
		ce *ConflictError
		te *InvalidStateTransitionError
	)
	return errors.As(err, &ve) || errors.As(err, &ne) || errors.As(err, &ae) ||
		errors.As(err, &ce) || errors.As(err, &te)
}
