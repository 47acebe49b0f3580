// Package apperr defines the error taxonomy shared by the governed
// operations: every blocked or failed operation is reported with a kind,
// machine-readable reasons, and remediation hints so callers can render
// a consistent "why is this locked" explanation.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. All kinds except Internal are recoverable
// by the caller: they state exactly which precondition failed.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPermission   Kind = "permission"
	KindPrecondition Kind = "precondition"
	KindImmutability Kind = "immutability"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is the structured error returned by all governed operations.
type Error struct {
	Kind        Kind     `json:"kind"`
	Message     string   `json:"message"`
	Reasons     []string `json:"reasons,omitempty"`
	Remediation []string `json:"remediation,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error without changing the kind.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithReasons appends reason codes (e.g. VISIT_CLOSED) to the error.
func (e *Error) WithReasons(reasons ...string) *Error {
	e.Reasons = append(e.Reasons, reasons...)
	return e
}

// WithRemediation appends remediation hints (e.g. CLEAR_PAYMENT).
func (e *Error) WithRemediation(actions ...string) *Error {
	e.Remediation = append(e.Remediation, actions...)
	return e
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing request fields.
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// NotFound reports an unknown or inactive entity.
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

// Permission reports a hard role deny with no remediation.
func Permission(format string, args ...interface{}) *Error {
	return newError(KindPermission, format, args...)
}

// Precondition wraps lock-blocked reasons that the caller can remedy.
func Precondition(format string, args ...interface{}) *Error {
	return newError(KindPrecondition, format, args...)
}

// Immutability reports writes against a closed visit or consultation.
func Immutability(format string, args ...interface{}) *Error {
	return newError(KindImmutability, format, args...)
}

// Conflict reports a duplicate-billing or concurrent-update collision.
func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// Internal reports an infrastructure failure. Not recoverable by the
// caller; the surrounding transaction must have been aborted.
func Internal(format string, args ...interface{}) *Error {
	return newError(KindInternal, format, args...)
}

// KindOf extracts the Kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// As extracts the structured error, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
