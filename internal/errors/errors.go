// Package errors provides standardized domain errors with codes for the registry.
//
// Usage:
//
//	// In services - return typed errors
//	if library == nil {
//	    return errors.UnknownLibraryf("I don't know how to handle tokens from library %q", shortName)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrAmbiguousPlace) {
//	    // ask the user to qualify the place name
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeTokenExpired:
//	        ...
//	    case errors.CodeSignatureMismatch:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
//
// The token codes map onto the accept/reject outcomes of Short Client Token
// decoding; AMBIGUOUS_PLACE is deliberately distinct from NOT_FOUND so that
// batch place resolution can accumulate the two separately.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeValidation        Code = "VALIDATION"
	CodeConflict          Code = "CONFLICT"
	CodeInternal          Code = "INTERNAL"
	CodeMalformedToken    Code = "MALFORMED_TOKEN"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeSignatureMismatch Code = "SIGNATURE_MISMATCH"
	CodeUnknownLibrary    Code = "UNKNOWN_LIBRARY"
	CodeAmbiguousPlace    Code = "AMBIGUOUS_PLACE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeValidation, CodeAmbiguousPlace:
		return http.StatusBadRequest
	case CodeMalformedToken, CodeTokenExpired, CodeSignatureMismatch, CodeUnknownLibrary:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
	ErrMalformedToken    = &Error{Code: CodeMalformedToken, Message: "malformed token"}
	ErrTokenExpired      = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrSignatureMismatch = &Error{Code: CodeSignatureMismatch, Message: "signature mismatch"}
	ErrUnknownLibrary    = &Error{Code: CodeUnknownLibrary, Message: "unknown library"}
	ErrAmbiguousPlace    = &Error{Code: CodeAmbiguousPlace, Message: "ambiguous place"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// MalformedToken creates a malformed token error.
func MalformedToken(msg string) *Error {
	return &Error{Code: CodeMalformedToken, Message: msg}
}

// MalformedTokenf creates a malformed token error with formatted message.
func MalformedTokenf(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedToken, Message: fmt.Sprintf(format, args...)}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// TokenExpiredf creates a token expired error with formatted message.
func TokenExpiredf(format string, args ...any) *Error {
	return &Error{Code: CodeTokenExpired, Message: fmt.Sprintf(format, args...)}
}

// SignatureMismatch creates a signature mismatch error.
func SignatureMismatch(msg string) *Error {
	return &Error{Code: CodeSignatureMismatch, Message: msg}
}

// SignatureMismatchf creates a signature mismatch error with formatted message.
func SignatureMismatchf(format string, args ...any) *Error {
	return &Error{Code: CodeSignatureMismatch, Message: fmt.Sprintf(format, args...)}
}

// UnknownLibrary creates an unknown library error.
func UnknownLibrary(msg string) *Error {
	return &Error{Code: CodeUnknownLibrary, Message: msg}
}

// UnknownLibraryf creates an unknown library error with formatted message.
func UnknownLibraryf(format string, args ...any) *Error {
	return &Error{Code: CodeUnknownLibrary, Message: fmt.Sprintf(format, args...)}
}

// AmbiguousPlace creates an ambiguous place error.
func AmbiguousPlace(msg string) *Error {
	return &Error{Code: CodeAmbiguousPlace, Message: msg}
}

// AmbiguousPlacef creates an ambiguous place error with formatted message.
func AmbiguousPlacef(format string, args ...any) *Error {
	return &Error{Code: CodeAmbiguousPlace, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
