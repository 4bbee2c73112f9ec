// Package errors provides domain-specific error types for netconfd.
//
// It defines structured errors with stable codes so callers can
// distinguish expected conditions (a link vanishing between a query
// and an operation) from real failures.
package errors

import "fmt"

// ErrorCode represents a category of error that can occur in the application.
type ErrorCode string

const (
	// ErrCodeNotFound indicates that a referenced link, address or route
	// is absent. Expected during races with external configuration.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeExists indicates that an add conflicted with an identity
	// that is already present. Expected during races.
	ErrCodeExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeInvalidArgument indicates malformed input (bad address or
	// prefix text, a default route added to a route collection).
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeSyncFailure indicates that an OS-level apply operation did
	// not take effect.
	ErrCodeSyncFailure ErrorCode = "SYNC_FAILURE"

	// ErrCodeConfig indicates a configuration file error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodePlatform indicates an unexpected platform layer error.
	ErrCodePlatform ErrorCode = "PLATFORM_ERROR"

	// ErrCodeValidation indicates a validation error.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string) *Error {
	return New(ErrCodeNotFound, message)
}

// NewExistsError creates a new already-exists error.
func NewExistsError(message string) *Error {
	return New(ErrCodeExists, message)
}

// NewInvalidArgumentError creates a new invalid-argument error.
func NewInvalidArgumentError(message string, cause error) *Error {
	return Wrap(ErrCodeInvalidArgument, message, cause)
}

// NewSyncFailureError creates a new sync-failure error.
func NewSyncFailureError(message string, cause error) *Error {
	return Wrap(ErrCodeSyncFailure, message, cause)
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewPlatformError creates a new platform layer error.
func NewPlatformError(message string, cause error) *Error {
	return Wrap(ErrCodePlatform, message, cause)
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, cause error) *Error {
	return Wrap(ErrCodeValidation, message, cause)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCodeInternal, message, cause)
}
