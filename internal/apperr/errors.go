package apperr

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Code classifies failures so transport layers can map them to statuses
// without string matching.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeStateConflict     Code = "state_conflict"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeLockContention    Code = "lock_contention"
	CodeExpired           Code = "expired"
	CodeInvalidArgument   Code = "invalid_argument"
	CodeUnavailable       Code = "unavailable"
	CodeInternal          Code = "internal"
)

type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: errors.Errorf(format, args...).Error()}
}

// Wrap attaches a code and message to an underlying error. A nil cause is
// allowed and behaves like New.
func Wrap(code Code, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// IsCode reports whether err or anything it wraps carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
