// Package apperr is the shared error vocabulary of the portal core. Every
// operation classifies its failures into one of these kinds so the HTTP layer
// can map them to status codes without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy.
type Kind int

const (
	// KindInternal is anything unclassified: logged with detail, surfaced
	// generically.
	KindInternal Kind = iota
	// KindValidation is a missing or malformed input field. Not retryable.
	KindValidation
	// KindNotFound is an absent record. Not retryable.
	KindNotFound
	// KindBusinessRule is a rule rejection (disabled user, ownership
	// mismatch, expired code, empty roster). The message is user-facing but
	// deliberately generic.
	KindBusinessRule
	// KindUnavailable is a service-level fault from the store or identity
	// provider. The caller may retry.
	KindUnavailable
	// KindPartial means a multi-write operation applied some but not all of
	// its writes. Callers must reconcile, not retry blindly.
	KindPartial
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a classified error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is shorthand for a KindValidation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// NotFound is shorthand for a KindNotFound error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// BusinessRule is shorthand for a KindBusinessRule error.
func BusinessRule(message string) *Error { return New(KindBusinessRule, message) }

// Unavailable is shorthand for a KindUnavailable error.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// Partial is shorthand for a KindPartial error.
func Partial(message string, err error) *Error {
	return Wrap(KindPartial, message, err)
}

// KindOf extracts the kind of err, or KindInternal if it is unclassified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of a classified error, or the
// given fallback for unclassified ones.
func MessageOf(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return fallback
}
