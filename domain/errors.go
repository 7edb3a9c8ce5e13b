package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeExternalAPI  ErrorCode = "EXTERNAL_API_ERROR"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	// Details is an optional payload for clients (validation fields, retryAfter).
	Details interface{}
	// Source names the upstream system for external failures, e.g. "GitHub".
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorized builds a 401-class error.
func NewUnauthorized(message string) *Error {
	return NewError(ErrCodeUnauthorized, message)
}

// NewValidationError builds a 400-class error whose details are safe to expose.
func NewValidationError(message string, details interface{}) *Error {
	return &Error{Code: ErrCodeValidation, Message: message, Details: details}
}

// NewExternalAPIError wraps an upstream failure and records which API failed.
func NewExternalAPIError(source, message string, err error) *Error {
	return &Error{Code: ErrCodeExternalAPI, Message: message, Source: source, Err: err}
}

// NewRateLimitError builds a 429-class error carrying the seconds until the window resets.
func NewRateLimitError(message string, retryAfter int64) *Error {
	return &Error{
		Code:    ErrCodeRateLimited,
		Message: message,
		Details: map[string]int64{"retryAfter": retryAfter},
	}
}

// Common domain errors.
var (
	ErrUserNotFound     = NewError(ErrCodeNotFound, "User not found")
	ErrSessionNotFound  = NewError(ErrCodeNotFound, "Session not found")
	ErrKeyNotFound      = NewError(ErrCodeNotFound, "key not found")
	ErrUsernameTaken    = NewError(ErrCodeConflict, "Username already taken")
	ErrUnauthorized     = NewUnauthorized("Unauthorized")
	ErrNoSession        = NewUnauthorized("No session found")
	ErrInvalidSession   = NewUnauthorized("Invalid or expired session")
	ErrInvalidState     = NewError(ErrCodeInvalidState, "Invalid state")
	ErrInvalidPayload   = NewValidationError("Validation failed", nil)
	ErrUnknownProvider  = NewValidationError("Unsupported provider", nil)
	ErrReservedUsername = NewValidationError("Username is reserved", nil)
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the classification of err, or an empty code for unclassified errors.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) && dErr != nil {
		return dErr.Code
	}
	return ""
}

// AsError extracts the domain error from err when present.
func AsError(err error) (*Error, bool) {
	var dErr *Error
	if errors.As(err, &dErr) && dErr != nil {
		return dErr, true
	}
	return nil, false
}
