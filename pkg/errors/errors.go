package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Input errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypePolicy       ErrorType = "POLICY"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// Application errors
	ErrorTypeInternal      ErrorType = "INTERNAL"
	ErrorTypeRateLimit     ErrorType = "RATE_LIMIT"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// Infrastructure errors
	ErrorTypeUpstream    ErrorType = "UPSTREAM"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeStore       ErrorType = "STORE"
)

// Error codes carried in responses so clients can branch without parsing messages
const (
	CodeInvalidURL           = "INVALID_URL"
	CodeInvalidScenarioURL   = "INVALID_SCENARIO_URL"
	CodeMissingScenarioID    = "MISSING_SCENARIO_ID"
	CodeNoScenarioID         = "NO_SCENARIO_ID"
	CodeUpstreamFetch        = "UPSTREAM_FETCH_ERROR"
	CodeUpstreamSchema       = "UPSTREAM_SCHEMA_ERROR"
	CodeModerationFlagged    = "MODERATION_FLAGGED"
	CodeModerationService    = "MODERATION_SERVICE_ERROR"
	CodeValidationService    = "VALIDATION_SERVICE_ERROR"
	CodeContentRejected      = "CONTENT_REJECTED"
	CodeDuplicateSubmission  = "DUPLICATE_SUBMISSION"
	CodeVersionConflict      = "VERSION_CONFLICT"
	CodeStoreRead            = "STORE_READ_ERROR"
	CodeStoreWrite           = "STORE_WRITE_ERROR"
	CodeRateLimited          = "RATE_LIMITED"
	CodeMissingConfiguration = "MISSING_CONFIGURATION"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithDetail sets a single detail
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// AsRetryable marks the error as safe to retry by resubmitting the request
func (e *AppError) AsRetryable() *AppError {
	e.Retryable = true
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&stack, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack.String()
}

func newError(t ErrorType, status int, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message)
}

// NewPolicyError reports content rejected by moderation or review
func NewPolicyError(message string) *AppError {
	return newError(ErrorTypePolicy, http.StatusBadRequest, message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message)
}

// NewRateLimitError creates a rate limit error with the wait expressed in minutes
func NewRateLimitError(retryAfterMinutes int) *AppError {
	msg := fmt.Sprintf("Too many submissions. Please try again in %d minutes.", retryAfterMinutes)
	return newError(ErrorTypeRateLimit, http.StatusTooManyRequests, msg).
		WithCode(CodeRateLimited).
		WithDetail("retry_after_seconds", retryAfterMinutes*60)
}

// NewConfigurationError reports a missing credential or setting
func NewConfigurationError(setting string) *AppError {
	return newError(ErrorTypeConfiguration, http.StatusServiceUnavailable,
		fmt.Sprintf("service is not configured: %s is missing", setting)).
		WithCode(CodeMissingConfiguration)
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("service '%s' is unavailable", service))
}

// NewUpstreamError reports a failed call to a remote API. A non-zero
// upstream status is included in the message.
func NewUpstreamError(service string, upstreamStatus int, err error) *AppError {
	msg := fmt.Sprintf("%s request failed", service)
	if upstreamStatus != 0 {
		msg = fmt.Sprintf("%s request failed with status %d", service, upstreamStatus)
	}
	appErr := newError(ErrorTypeUpstream, http.StatusInternalServerError, msg).WithCause(err)
	if upstreamStatus != 0 {
		appErr.WithDetail("upstream_status", upstreamStatus)
	}
	return appErr
}

// NewStoreError creates a document store error
func NewStoreError(operation string, err error) *AppError {
	return newError(ErrorTypeStore, http.StatusInternalServerError,
		fmt.Sprintf("template store %s failed", operation)).WithCause(err)
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// HasCode checks if an error carries a specific code
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}
