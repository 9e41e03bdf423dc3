// Package errors provides structured error types for the DevFinder application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, HTTP API, and library callers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND_*: Resource not found
//   - NETWORK_*: Network-related errors
//   - AUTH_*: Authentication failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidEmail, "invalid email: %s", email)
//	if errors.Is(err, errors.ErrCodeInvalidEmail) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidEmail      Code = "INVALID_EMAIL"
	ErrCodeInvalidSource     Code = "INVALID_SOURCE"
	ErrCodeInvalidConfidence Code = "INVALID_CONFIDENCE"
	ErrCodeInvalidFilter     Code = "INVALID_FILTER"

	// Resource not found errors
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeUserNotFound   Code = "USER_NOT_FOUND"
	ErrCodeListNotFound   Code = "LIST_NOT_FOUND"
	ErrCodeSearchNotFound Code = "SEARCH_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Authentication errors
	ErrCodeUnauthorized   Code = "UNAUTHORIZED"
	ErrCodeAuthExpired    Code = "AUTH_EXPIRED"
	ErrCodeSessionExpired Code = "SESSION_EXPIRED"

	// Storage errors
	ErrCodeStorageConflict Code = "STORAGE_CONFLICT"

	// Degraded-success outcomes
	ErrCodePartialResult Code = "PARTIAL_RESULT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsValidation reports whether err is any input-validation failure,
// regardless of which INVALID_* code it carries.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidEmail, ErrCodeInvalidSource,
		ErrCodeInvalidConfidence, ErrCodeInvalidFilter:
		return true
	}
	return false
}

// IsNotFound reports whether err is any resource-not-found failure,
// regardless of which NOT_FOUND variant it carries.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeUserNotFound, ErrCodeListNotFound, ErrCodeSearchNotFound:
		return true
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError reports an exhausted GitHub rate-limit budget.
// ResetAt is the time at which the remote budget replenishes; callers
// should surface the wait time rather than retry immediately.
type RateLimitedError struct {
	ResetAt time.Time
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if !e.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited: resets at %s", e.ResetAt.Format(time.RFC3339))
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}

// IsRateLimited reports whether err is a rate-limit failure, and returns
// the reset time when known.
func IsRateLimited(err error) (time.Time, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.ResetAt, true
	}
	if Is(err, ErrCodeRateLimited) {
		return time.Time{}, true
	}
	return time.Time{}, false
}

// AuthExpiredError reports that token refresh exhausted every fallback.
// It is terminal: the user must re-authenticate.
type AuthExpiredError struct {
	Cause error
}

// Error implements the error interface.
func (e *AuthExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication expired: %v", e.Cause)
	}
	return "authentication expired"
}

// Unwrap returns the underlying cause.
func (e *AuthExpiredError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *AuthExpiredError) Code() Code { return ErrCodeAuthExpired }

// IsAuthExpired reports whether err is a terminal authentication failure.
func IsAuthExpired(err error) bool {
	var ae *AuthExpiredError
	return errors.As(err, &ae) || Is(err, ErrCodeAuthExpired)
}
