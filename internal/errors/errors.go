package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error is the structured error type for notecove.
// It carries a stable code, a category derived from that code, and
// optional key-value details for logging and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_402_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Embedding, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with *Error values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error.
// The wrapped error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// DuplicateName reports a corpus create with an already-taken name.
func DuplicateName(name string) *Error {
	return Newf(ErrCodeDuplicateName, "corpus %q already exists", name).
		WithDetail("name", name)
}

// NotFound reports an unknown corpus, session, or path.
func NotFound(kind, key string) *Error {
	return Newf(ErrCodeNotFound, "%s %q not found", kind, key).
		WithDetail("kind", kind).
		WithDetail("key", key)
}

// InvalidScope reports an empty or all-dead session scope.
func InvalidScope(message string) *Error {
	return New(ErrCodeInvalidScope, message, nil)
}

// DimensionMismatch reports a query/stored vector dimension conflict.
// It signals embedding-model drift and is always fatal.
func DimensionMismatch(expected, got int) *Error {
	return Newf(ErrCodeDimensionMismatch, "dimension mismatch: expected %d, got %d", expected, got).
		WithDetail("expected", fmt.Sprintf("%d", expected)).
		WithDetail("got", fmt.Sprintf("%d", got))
}

// IOFailure wraps a filesystem error surfaced from the file cache.
func IOFailure(path string, err error) *Error {
	return Wrap(ErrCodeIOFailure, err).WithDetail("path", path)
}

// EmbeddingFailure wraps a model error for a specific path during indexing.
func EmbeddingFailure(path string, err error) *Error {
	code := ErrCodeEmbeddingFailed
	if errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeEmbeddingTimeout
	}
	return Wrap(code, err).WithDetail("path", path)
}

// GetCode extracts the error code from an Error.
// Returns empty string if err is not an *Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode checks whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return HasCode(err, ErrCodeNotFound) }

// IsDuplicateName reports whether err is a DUPLICATE_NAME error.
func IsDuplicateName(err error) bool { return HasCode(err, ErrCodeDuplicateName) }

// IsInvalidScope reports whether err is an INVALID_SCOPE error.
func IsInvalidScope(err error) bool { return HasCode(err, ErrCodeInvalidScope) }

// IsDimensionMismatch reports whether err is a DIMENSION_MISMATCH error.
func IsDimensionMismatch(err error) bool { return HasCode(err, ErrCodeDimensionMismatch) }

// IsEmbeddingFailure reports whether err is an embedding failure or timeout.
func IsEmbeddingFailure(err error) bool {
	return HasCode(err, ErrCodeEmbeddingFailed) || HasCode(err, ErrCodeEmbeddingTimeout)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the operation that raised them.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}
