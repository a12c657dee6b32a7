package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error on a specific field
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a create would violate a uniqueness invariant
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeStateConflict indicates an optimistic-lock or compare-and-set
	// mismatch; the caller should re-read and retry
	ErrorTypeStateConflict ErrorType = "STATE_CONFLICT"

	// ErrorTypeInvalidTransition indicates a state transition that is not
	// defined for the current state; retrying will not help
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"

	// ErrorTypeUnauthorized indicates the actor lacks the role for the operation
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypePendingConfiguration indicates an item has no coverage rule and
	// the plan requires explicit approval before billing can proceed
	ErrorTypePendingConfiguration ErrorType = "PENDING_CONFIGURATION"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error. Field carries the field, row or
// transition the error is attributable to, so batch operations can report
// per-row outcomes.
type AppError struct {
	Type    ErrorType
	Message string
	Field   string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField returns a copy of the error attributed to the given field
func (e *AppError) WithField(field string) *AppError {
	clone := *e
	clone.Field = field
	return &clone
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal when err is not
// an AppError
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error attributed to a field
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Field:   field,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewStateConflictError creates a new optimistic-concurrency conflict error
func NewStateConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeStateConflict,
		Message: message,
	}
}

// NewInvalidTransitionError creates a new invalid transition error
func NewInvalidTransitionError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidTransition,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewPendingConfigurationError creates a new pending configuration error
func NewPendingConfigurationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypePendingConfiguration,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}
