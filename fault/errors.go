package fault

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors - use with errors.Is()
var (
	// Remote signals
	ErrUnauthorized = errors.New("mailshield: unauthorized (invalid credentials)")
	ErrForbidden    = errors.New("mailshield: forbidden")
	ErrNotFound     = errors.New("mailshield: not found")
	ErrRateLimited  = errors.New("mailshield: rate limit exceeded")
	ErrValidation   = errors.New("mailshield: request rejected as invalid")

	// Engine signals
	ErrCircuitOpen   = errors.New("mailshield: circuit breaker open")
	ErrMaxRetries    = errors.New("mailshield: max retries exceeded")
	ErrInvalidConfig = errors.New("mailshield: invalid configuration")
)

// RemoteError represents a non-success reply from the remote API.
// Use errors.As() to extract details, errors.Is() to match sentinels.
type RemoteError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Operation  string // remote operation that failed, e.g. "addSubscriber"
	cause      error  // underlying sentinel for errors.Is()
}

func (e *RemoteError) Error() string {
	op := e.Operation
	if op == "" {
		op = "request"
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("mailshield: %s failed: %s (status=%d, retry_after=%s)",
			op, e.Message, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("mailshield: %s failed: %s (status=%d)", op, e.Message, e.StatusCode)
}

// Unwrap returns the underlying sentinel error for errors.Is() support.
func (e *RemoteError) Unwrap() error { return e.cause }

// NewRemoteError creates a RemoteError with automatic sentinel detection.
func NewRemoteError(operation string, status int, message string) *RemoteError {
	return &RemoteError{
		StatusCode: status,
		Message:    message,
		Operation:  operation,
		cause:      DetectSentinel(status, message),
	}
}

// NewRemoteErrorWithRetry creates a RemoteError carrying the remote's requested wait.
func NewRemoteErrorWithRetry(operation string, status int, message string, retryAfter time.Duration) *RemoteError {
	e := NewRemoteError(operation, status, message)
	e.RetryAfter = retryAfter
	return e
}

// DetectSentinel maps remote status codes and messages to sentinel errors.
// Message-based detection wins over the status code.
func DetectSentinel(status int, message string) error {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"):
		return ErrRateLimited
	case strings.Contains(msg, "invalid auth token"),
		strings.Contains(msg, "invalid token"),
		strings.Contains(msg, "unauthorized"):
		return ErrUnauthorized
	case strings.Contains(msg, "forbidden"):
		return ErrForbidden
	}

	switch status {
	case 400, 405, 409, 410, 413, 415, 422:
		return ErrValidation
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	}

	return nil
}

// ValidationError represents a request rejected before or by the remote
// because its input is malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mailshield: validation: %s - %s", e.Field, e.Message)
}

// Unwrap ties every ValidationError to ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mailshield: config: %s - %s", e.Key, e.Message)
}

// Unwrap ties every ConfigError to ErrInvalidConfig.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// NewConfigError creates a new ConfigError.
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}
