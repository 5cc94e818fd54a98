// Package domainerrors defines coded errors shared by services and transports.
//
// Services return *Error values carrying a Code; transports map the code to a
// status (see pkg/platform/httputil). Stores never return coded errors, they
// return sentinel facts from pkg/platform/sentinel that services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"

	// Case lifecycle and configuration codes.
	CodeInvalidTransition           Code = "invalid_transition"
	CodeConcurrentModification      Code = "concurrent_modification"
	CodeUnknownEndingReason         Code = "unknown_ending_reason"
	CodeDecisionPreventsTermination Code = "decision_prevents_termination"
	CodeConfigurationNotFound       Code = "configuration_not_found"
	CodeExtensionNotAllowed         Code = "extension_not_allowed"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost coded error in the chain has the given code.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the outermost coded error in the chain, or an
// empty Code when the chain carries none.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsUserFacing reports whether the message of the error may be shown to callers.
func IsUserFacing(code Code) bool {
	switch code {
	case CodeInternal, "":
		return false
	default:
		return true
	}
}
