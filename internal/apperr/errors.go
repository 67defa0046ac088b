package apperr

import (
	"errors"
	"fmt"

	"github.com/tgienger/phub/internal/validation"
)

// NewTransportError reports that a request produced no usable response
func NewTransportError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransport,
		Message: fmt.Sprintf("request failed: %s", operation),
		Code:    "TRANSPORT_ERROR",
		Cause:   cause,
		Context: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewAuthError reports a missing, invalid or expired session
func NewAuthError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuth,
		Message: message,
		Code:    "UNAUTHENTICATED",
		Context: make(map[string]interface{}),
	}
}

// NewMutationError carries the human readable error of a success:false response
func NewMutationError(operation string, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeMutation,
		Message: message,
		Code:    "MUTATION_FAILED",
		Context: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewServerError reports GraphQL level errors returned alongside a response
func NewServerError(operation string, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeServer,
		Message: message,
		Code:    "SERVER_ERROR",
		Context: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string, identifier string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
		Code:    "NOT_FOUND",
		Context: map[string]interface{}{
			"resource":   resource,
			"identifier": identifier,
		},
	}
}

// NewStorageError wraps a local settings database failure
func NewStorageError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Message: fmt.Sprintf("local storage failed: %s", operation),
		Code:    "STORAGE_ERROR",
		Cause:   cause,
		Context: map[string]interface{}{
			"operation": operation,
		},
	}
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorType checks if the error is of the specified type
func IsErrorType(err error, errorType ErrorType) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.IsType(errorType)
	}
	return false
}

// IsTransport reports whether err is a connectivity failure
func IsTransport(err error) bool {
	return IsErrorType(err, ErrorTypeTransport)
}

// IsAuth reports whether err means the session is no longer valid
func IsAuth(err error) bool {
	return IsErrorType(err, ErrorTypeAuth)
}

// UserMessage returns the text shown next to the control that triggered err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return ve.FirstMessage()
	}
	if appErr, ok := AsAppError(err); ok {
		switch appErr.Type {
		case ErrorTypeMutation, ErrorTypeValidation, ErrorTypeNotFound:
			return appErr.Message
		case ErrorTypeTransport:
			return "Network error. Please try again."
		case ErrorTypeAuth:
			return "Your session has expired. Please sign in again."
		case ErrorTypeServer:
			return "The server could not complete the request."
		case ErrorTypeStorage:
			return "Could not save local settings."
		default:
			return "An error occurred"
		}
	}
	return "An error occurred"
}

// GetErrorCode returns the error code for the error
func GetErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return "UNKNOWN_ERROR"
}
