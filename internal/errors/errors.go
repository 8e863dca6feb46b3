package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound       ErrCode = "NOT_FOUND"
	ErrCodeRateLimited    ErrCode = "RATE_LIMITED"
	ErrCodeTransient      ErrCode = "TRANSIENT"
	ErrCodePartialFailure ErrCode = "PARTIAL_FAILURE"
	ErrCodeConfig         ErrCode = "CONFIG_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error

	// Wait is how long the caller must sleep before retrying.
	// Only set for RATE_LIMITED errors.
	Wait time.Duration
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

// NewNotFoundError creates a terminal not-found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewRateLimitedError creates a rate-limited error carrying the wait duration
func NewRateLimitedError(message string, wait time.Duration) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		Wait:    wait,
	}
}

// NewTransientError creates a retryable network/HTTP error
func NewTransientError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransient,
		Message: message,
		Err:     err,
	}
}

// NewPartialFailureError creates a non-fatal batch summary error
func NewPartialFailureError(failed, total int) *AppError {
	return &AppError{
		Code:    ErrCodePartialFailure,
		Message: fmt.Sprintf("%d of %d items failed", failed, total),
	}
}

// NewConfigError creates a fatal startup configuration error
func NewConfigError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfig,
		Message: message,
	}
}

func code(err error) (ErrCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	c, ok := code(err)
	return ok && c == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	c, ok := code(err)
	return ok && c == ErrCodeRateLimited
}

// IsTransient checks if the error is a retryable transient error
func IsTransient(err error) bool {
	c, ok := code(err)
	return ok && c == ErrCodeTransient
}

// IsConfig checks if the error is a configuration error
func IsConfig(err error) bool {
	c, ok := code(err)
	return ok && c == ErrCodeConfig
}

// RateLimitWait extracts the wait duration from a rate-limited error.
// Returns false when the error is not rate limiting.
func RateLimitWait(err error) (time.Duration, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == ErrCodeRateLimited {
		return appErr.Wait, true
	}
	return 0, false
}
