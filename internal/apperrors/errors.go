// Package apperrors defines the categorized error taxonomy used across
// services and mapped to HTTP responses by the API layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category represents the category of an error
type Category string

const (
	// CategoryValidation represents bad or missing user input (400)
	CategoryValidation Category = "validation"
	// CategoryAuth represents authentication failures (401)
	CategoryAuth Category = "auth"
	// CategoryConflict represents duplicate-resource conflicts (400)
	CategoryConflict Category = "conflict"
	// CategoryNotFound represents missing resources (404)
	CategoryNotFound Category = "not_found"
	// CategoryUpstream represents quote-provider failures. These are always
	// absorbed into a degraded default by the quote chain and never reach
	// an HTTP response.
	CategoryUpstream Category = "upstream"
	// CategoryStore represents document-store failures (500)
	CategoryStore Category = "store"
)

// Error is an error with a category and an HTTP status code.
type Error struct {
	Category   Category
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError extracts an *Error from err, if it carries one.
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewValidationError creates a bad-input error.
func NewValidationError(message string) *Error {
	return &Error{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    message,
	}
}

// NewAuthError creates a missing/invalid-token error.
func NewAuthError(message string) *Error {
	return &Error{
		Category:   CategoryAuth,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewCredentialsError creates a failed-login error. Login rejections are
// 400, not 401: only token failures answer 401, which the client treats
// as an expired session. Unknown email and wrong password share this one
// constructor so callers cannot accidentally leak which check failed.
func NewCredentialsError(message string) *Error {
	return &Error{
		Category:   CategoryAuth,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_CREDENTIALS",
		Message:    message,
	}
}

// NewConflictError creates a duplicate-resource error. The signup route
// reports duplicates as 400 to match the public API contract.
func NewConflictError(message string) *Error {
	return &Error{
		Category:   CategoryConflict,
		StatusCode: http.StatusBadRequest,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// NewNotFoundError creates a missing-resource error.
func NewNotFoundError(resource, key string) *Error {
	return &Error{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, key),
		Details: map[string]interface{}{
			"resource": resource,
			"key":      key,
		},
	}
}

// NewUpstreamError wraps a quote-provider failure.
func NewUpstreamError(provider string, cause error) *Error {
	return &Error{
		Category:   CategoryUpstream,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    fmt.Sprintf("provider %s unavailable", provider),
		Details: map[string]interface{}{
			"provider": provider,
		},
		Cause: cause,
	}
}

// NewStoreError wraps a document-store failure. The message is generic;
// the cause is logged server-side and never returned to the client.
func NewStoreError(op string, cause error) *Error {
	return &Error{
		Category:   CategoryStore,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORE_ERROR",
		Message:    fmt.Sprintf("storage operation failed: %s", op),
		Cause:      cause,
	}
}
