// Package errors defines the typed error model shared by every layer.
// Domain and infrastructure code return these instead of panicking; the
// HTTP layer maps them onto status codes without inspecting messages.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType classifies an error for programmatic handling.
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation        ErrorType = "VALIDATION"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeConflict          ErrorType = "CONFLICT"
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"
	ErrorTypeAlreadyReviewed   ErrorType = "ALREADY_REVIEWED"
	ErrorTypeAlreadySuperseded ErrorType = "ALREADY_SUPERSEDED"
	ErrorTypeUnauthorized      ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden         ErrorType = "FORBIDDEN"

	// Application errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// Infrastructure errors
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError carries the error type, a human-readable message and any
// structured details a caller needs to act on the failure.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
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

// WithDetails adds structured details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// captureStackTrace records the call site chain for diagnostics.
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		StackTrace: captureStackTrace(),
	}
}

// NewNotFoundError creates a not found error for a resource and id.
// The message never distinguishes "missing" from "belongs to another
// tenant"; existence must not leak across tenants.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    map[string]interface{}{"resource": resource, "id": id},
		HTTPStatus: http.StatusNotFound,
		StackTrace: captureStackTrace(),
	}
}

// NewInvalidTransitionError reports an illegal lifecycle move. The details
// always name the current state, the attempted target and the full allowed
// set so callers can render the legal moves.
func NewInvalidTransitionError(current, attempted string, allowed []string) *AppError {
	if allowed == nil {
		allowed = []string{}
	}
	return &AppError{
		Type:    ErrorTypeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", current, attempted),
		Details: map[string]interface{}{
			"currentState":   current,
			"attemptedState": attempted,
			"allowedStates":  allowed,
		},
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewAlreadyReviewedError reports a second review attempt on a proposal.
func NewAlreadyReviewedError(proposalID, currentStatus string) *AppError {
	return &AppError{
		Type:    ErrorTypeAlreadyReviewed,
		Message: fmt.Sprintf("proposal already reviewed with status %s", currentStatus),
		Details: map[string]interface{}{
			"proposalId":    proposalID,
			"currentStatus": currentStatus,
		},
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewAlreadySupersededError reports a supersede attempt on a non-active decision.
func NewAlreadySupersededError(decisionID string) *AppError {
	return &AppError{
		Type:    ErrorTypeAlreadySuperseded,
		Message: "decision is no longer active",
		Details: map[string]interface{}{
			"decisionId": decisionID,
		},
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewConflictError creates a conflict error (optimistic lock collisions).
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		StackTrace: captureStackTrace(),
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return &AppError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
		StackTrace: captureStackTrace(),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("operation '%s' timed out", operation),
		HTTPStatus: http.StatusRequestTimeout,
		StackTrace: captureStackTrace(),
	}
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    fmt.Sprintf("service '%s' is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		StackTrace: captureStackTrace(),
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDatabase,
		Message:    fmt.Sprintf("database operation '%s' failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// NewExternalError creates an external service error
func NewExternalError(service string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Message:    fmt.Sprintf("external service '%s' error", service),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
		StackTrace: captureStackTrace(),
	}
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

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsInvalidTransition checks if an error is an invalid transition error
func IsInvalidTransition(err error) bool {
	return IsType(err, ErrorTypeInvalidTransition)
}

// IsAlreadyReviewed checks if an error is an already reviewed error
func IsAlreadyReviewed(err error) bool {
	return IsType(err, ErrorTypeAlreadyReviewed)
}

// IsAlreadySuperseded checks if an error is an already superseded error
func IsAlreadySuperseded(err error) bool {
	return IsType(err, ErrorTypeAlreadySuperseded)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

// IsUnavailable checks if an error is an unavailable error
func IsUnavailable(err error) bool {
	return IsType(err, ErrorTypeUnavailable)
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

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
