// Package errors provides the unified error handling mechanism.
//
// Design principles:
//  1. Every error can be inspected with errors.Is() and errors.As()
//  2. Errors carry enough context for debugging
//  3. Error codes classify failures so callers can distinguish recoverable
//     from fatal conditions
//  4. Error chains (wrapping) are fully supported
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an error.
type ErrorCode string

const (
	// Configuration errors: fatal to the call, never retried.
	CodeConfigError     ErrorCode = "CONFIG_ERROR"
	CodeInvalidValue    ErrorCode = "INVALID_VALUE"
	CodeNotRegistered   ErrorCode = "NOT_REGISTERED"
	CodeDuplicateMetric ErrorCode = "DUPLICATE_METRIC"

	// Format errors: recoverable during exposition (skip the entry).
	CodeFormatError ErrorCode = "FORMAT_ERROR"

	// Transport errors: the store adapter retries before surfacing these.
	CodeTransportError ErrorCode = "TRANSPORT_ERROR"

	// Lifecycle errors.
	CodeRegistryClosed ErrorCode = "REGISTRY_CLOSED"
)

// Error is the unified error type.
type Error struct {
	Code    ErrorCode // classification code
	Message string    // human-readable message
	Cause   error     // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Unwrap.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so sentinels compare against wrapped instances.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new error.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a code and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode extracts the code from an error chain.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is re-exports errors.Is.
var Is = errors.Is

// As re-exports errors.As.
var As = errors.As
