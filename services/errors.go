package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a service failure so controllers can map it to an
// HTTP status without string matching.
type Kind string

const (
	KindValidationFailed       Kind = "validation_failed"
	KindNotFound               Kind = "not_found"
	KindUnauthorized           Kind = "unauthorized"
	KindInvalidTransition      Kind = "invalid_transition"
	KindPreconditionFailed     Kind = "precondition_failed"
	KindAlreadyRegistered      Kind = "already_registered"
	KindNotRegistered          Kind = "not_registered"
	KindCapacityExceeded       Kind = "capacity_exceeded"
	KindEnrollmentClosed       Kind = "enrollment_closed"
	KindEnrollmentDeadline     Kind = "enrollment_deadline_passed"
	KindAlreadyOrganizer       Kind = "already_organizer"
	KindNotAnNgo               Kind = "not_an_ngo"
	KindAlreadySponsor         Kind = "already_sponsor"
	KindHasDependents          Kind = "has_dependents"
	KindTooManyImages          Kind = "too_many_images"
	KindDualWriteFailure       Kind = "dual_write_failure"
	KindStoreUnavailable       Kind = "store_unavailable"
)

// Error is the failure type returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	// Allowed lists the valid target statuses when Kind is
	// KindInvalidTransition.
	Allowed []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a service error with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches an underlying cause to a service error.
func WrapError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidTransition reports a rejected status change along with the
// transitions that would have been accepted from the current state.
func InvalidTransition(from, to string, allowed []string) *Error {
	msg := fmt.Sprintf("cannot change status from %s to %s", from, to)
	if len(allowed) > 0 {
		msg += fmt.Sprintf(" (allowed: %s)", strings.Join(allowed, ", "))
	}
	return &Error{Kind: KindInvalidTransition, Message: msg, Allowed: allowed}
}

// KindOf extracts the kind from an error chain, or empty when the error
// is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
