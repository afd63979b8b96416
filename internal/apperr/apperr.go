// Package apperr defines the error taxonomy shared by the placement engine.
//
// Pure components (scope, eligibility) never return these; they report
// structured decisions. Orchestrating services translate denials into an
// *Error at their boundary and controllers map the Kind to a status code.
package apperr

import (
	"errors"
	"strings"
)

// Kind is a machine-readable error class.
type Kind string

const (
	KindAuthenticationRequired Kind = "AUTHENTICATION_REQUIRED"
	KindAuthorizationDenied    Kind = "AUTHORIZATION_DENIED"
	KindNotFound               Kind = "NOT_FOUND"
	KindValidation             Kind = "VALIDATION_ERROR"
	KindConflict               Kind = "CONFLICT"
	KindIneligible             Kind = "INELIGIBLE"
	KindInternal               Kind = "INTERNAL"
)

// Error is the domain error carried across service boundaries.
type Error struct {
	Kind    Kind
	Message string
	// Reasons lists every failing criterion for KindIneligible.
	Reasons []string
	// Fields maps input names to validation messages.
	Fields map[string]string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Unauthenticated(message string) *Error { return New(KindAuthenticationRequired, message) }

func Denied(message string) *Error { return New(KindAuthorizationDenied, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Internal(message string, cause error) *Error { return Wrap(KindInternal, message, cause) }

// Invalid builds a validation error; fields may be nil.
func Invalid(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Ineligible carries the eligibility engine's reasons verbatim.
func Ineligible(reasons []string) *Error {
	copied := append([]string(nil), reasons...)
	return &Error{
		Kind:    KindIneligible,
		Message: "not eligible: " + strings.Join(copied, "; "),
		Reasons: copied,
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
