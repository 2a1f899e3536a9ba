package domain

import (
	"errors"
	"net/http"
)

// ErrorCode identifies a failure class. Retryability is decided once, where
// the error is first raised; callers never re-derive it from message text.
type ErrorCode string

const (
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeAuthentication   ErrorCode = "AUTHENTICATION_FAILED"
	CodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	CodePredictionFailed ErrorCode = "PREDICTION_FAILED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// Error is the structured error carried across the pipeline.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for %w-style inspection.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func NewValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func NewNotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func NewRateLimit(msg string) *Error {
	return &Error{Code: CodeRateLimit, Message: msg, Retryable: true}
}

func NewAuthentication(msg string) *Error {
	return &Error{Code: CodeAuthentication, Message: msg}
}

func NewGenerationFailed(msg string, retryable bool) *Error {
	return &Error{Code: CodeGenerationFailed, Message: msg, Retryable: retryable}
}

func NewPredictionFailed(msg string, retryable bool) *Error {
	return &Error{Code: CodePredictionFailed, Message: msg, Retryable: retryable}
}

func NewTimeout(msg string) *Error {
	return &Error{Code: CodeTimeout, Message: msg, Retryable: true}
}

func NewInternal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// CodeOf returns the error code, or CodeInternal for unclassified errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the operation that produced err may be retried.
// Unclassified errors are not retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// HTTPStatus maps an error code onto the status surfaced to callers.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimit, CodeTimeout:
		return http.StatusServiceUnavailable
	case CodeGenerationFailed, CodePredictionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is kept as a sentinel for repository scans.
var ErrNotFound = NewNotFound("not found")
