package core

import (
	"errors"
	"fmt"
)

// Domain specific errors
var (
	ErrNoChat = errors.New("update has no chat")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: message,
	}
}

// ServiceError represents a Bot API call the payment flow could not complete
type ServiceError struct {
	Code    string
	Message string
	Cause   error
}

func (e ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e ServiceError) Unwrap() error { return e.Cause }

// NewServiceError creates a new service error
func NewServiceError(code, message string, cause error) ServiceError {
	return ServiceError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
