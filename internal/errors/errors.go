package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound      ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited   ErrCode = "RATE_LIMITED"
	ErrCodeInternal      ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest    ErrCode = "BAD_REQUEST"
	ErrCodeForbidden     ErrCode = "FORBIDDEN"
	ErrCodeConfiguration ErrCode = "CONFIGURATION"
	ErrCodeUnavailable   ErrCode = "UNAVAILABLE"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Err:     err,
	}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError reports a tenant or process that is not set up well enough to run
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: message,
	}
}

// NewUnavailableError reports an external system that could not be reached at all
func NewUnavailableError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeUnavailable,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain
func CodeOf(err error) (ErrCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeRateLimited
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnauthorized
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeForbidden
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeConfiguration
}

// IsUnavailable checks if the error is an unavailable error
func IsUnavailable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnavailable
}
