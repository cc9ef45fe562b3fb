package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so wrapped variants compare equal to the sentinels below
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// Identity gate errors
	ErrUnauthorized = &DomainError{
		Code:    "UNAUTHORIZED",
		Message: "no bearer token provided",
	}
	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "token is invalid or expired",
	}
	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
	}

	// Token errors
	ErrInvalidSignature = &DomainError{
		Code:    "INVALID_SIGNATURE",
		Message: "token signature is invalid",
	}
	ErrTokenExpired = &DomainError{
		Code:    "TOKEN_EXPIRED",
		Message: "token has expired",
	}

	// OAuth errors
	ErrAuth = &DomainError{
		Code:    "AUTH_ERROR",
		Message: "error during authentication",
	}
	ErrMissingToken = &DomainError{
		Code:    "MISSING_TOKEN",
		Message: "please provide a user token",
	}

	// Transport errors, surfaced by the session client
	ErrTransport = &DomainError{
		Code:    "TRANSPORT_ERROR",
		Message: "request failed",
	}

	// Validation Errors
	ErrValidationFailed = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}
	ErrRequiredFieldMissing = &DomainError{
		Code:    "REQUIRED_FIELD_MISSING",
		Message: "required field is missing",
	}

	// Infrastructure Errors
	ErrDatabaseOperation = &DomainError{
		Code:    "DATABASE_OPERATION_FAILED",
		Message: "database operation failed",
	}
	ErrNotImplemented = &DomainError{
		Code:    "NOT_IMPLEMENTED",
		Message: "not implemented",
	}
	ErrRateLimited = &DomainError{
		Code:    "RATE_LIMITED",
		Message: "too many requests",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapAuthError wraps an OAuth provider failure
func WrapAuthError(operation string, cause error) error {
	return &DomainError{
		Code:    ErrAuth.Code,
		Message: fmt.Sprintf("error during authentication: %s", operation),
		Cause:   cause,
	}
}

// WrapUserNotFound wraps a lookup miss with the key that was searched
func WrapUserNotFound(key string, cause error) error {
	return &DomainError{
		Code:    ErrUserNotFound.Code,
		Message: fmt.Sprintf("user not found: %s", key),
		Cause:   cause,
	}
}

// WrapRequiredFieldMissing names the missing request field
func WrapRequiredFieldMissing(field string) error {
	return &DomainError{
		Code:    ErrRequiredFieldMissing.Code,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// WrapValidationError wraps a validation failure for a field
func WrapValidationError(field string, cause error) error {
	return &DomainError{
		Code:    ErrValidationFailed.Code,
		Message: fmt.Sprintf("validation failed for %s", field),
		Cause:   cause,
	}
}

// WrapDatabaseOperation wraps an error as a database operation failure
func WrapDatabaseOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrDatabaseOperation.Code,
		Message: fmt.Sprintf("database operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapTransportError wraps a failed client request. status is 0 when the
// request never produced a response.
func WrapTransportError(target string, status int, message string, cause error) error {
	msg := fmt.Sprintf("request to %s failed", target)
	if status != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, status)
	}
	if message != "" {
		msg = fmt.Sprintf("%s: %s", msg, message)
	}
	return &DomainError{
		Code:    ErrTransport.Code,
		Message: msg,
		Cause:   cause,
	}
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

func hasCode(err error, codes ...string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	for _, code := range codes {
		if domainErr.Code == code {
			return true
		}
	}
	return false
}

// IsTokenError checks if an error means the token could not be validated
func IsTokenError(err error) bool {
	return hasCode(err, ErrInvalidSignature.Code, ErrTokenExpired.Code, ErrForbidden.Code)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasCode(err, ErrUserNotFound.Code)
}

// IsAuthError checks if an error came from the OAuth provider flow
func IsAuthError(err error) bool {
	return hasCode(err, ErrAuth.Code, ErrMissingToken.Code)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasCode(err, ErrValidationFailed.Code, ErrRequiredFieldMissing.Code)
}

// IsTransportError checks if an error is a client transport error
func IsTransportError(err error) bool {
	return hasCode(err, ErrTransport.Code)
}

// IsInfrastructureError checks if an error is an infrastructure error
func IsInfrastructureError(err error) bool {
	return hasCode(err, ErrDatabaseOperation.Code)
}

// PublicMessage returns the message safe to show to a caller, without the
// code prefix. Only validation failures include their cause.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return "internal error"
	}
	if domainErr.Code == ErrValidationFailed.Code && domainErr.Cause != nil {
		return fmt.Sprintf("%s: %v", domainErr.Message, domainErr.Cause)
	}
	return domainErr.Message
}

// HTTPStatus maps a domain error to the status the endpoint boundary returns
func HTTPStatus(err error) int {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case ErrForbidden.Code, ErrInvalidSignature.Code, ErrTokenExpired.Code:
		return http.StatusForbidden
	case ErrUserNotFound.Code:
		return http.StatusNotFound
	case ErrAuth.Code, ErrMissingToken.Code:
		return http.StatusNotAcceptable
	case ErrValidationFailed.Code, ErrRequiredFieldMissing.Code:
		return http.StatusBadRequest
	case ErrNotImplemented.Code:
		return http.StatusNotImplemented
	case ErrRateLimited.Code:
		return http.StatusTooManyRequests
	case ErrTransport.Code:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
