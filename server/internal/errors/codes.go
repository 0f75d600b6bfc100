package errors

import (
	"fmt"
	"net/http"

	"github.com/Drgblack/timemeaning/plugin/timeref"
	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
)

// ErrorCode represents a specific error type returned by the HTTP API.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeServiceUnavailable indicates the service is not available.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Resolution failures, passed through from the engine.
	ErrCodeInvalidInput          = ErrorCode(failure.CodeInvalidInput)
	ErrCodeUnparseable           = ErrorCode(failure.CodeUnparseable)
	ErrCodeAmbiguousUnresolvable = ErrorCode(failure.CodeAmbiguousUnresolvable)
	ErrCodeGhostTime             = ErrorCode(failure.CodeGhostTime)
	ErrCodeInvalidContext        = ErrorCode(failure.CodeInvalidContext)
	ErrCodeInternal              = ErrorCode(failure.CodeInternal)
)

var statusByCode = map[ErrorCode]int{
	ErrCodeUnauthorized:          http.StatusUnauthorized,
	ErrCodeRateLimitExceeded:     http.StatusTooManyRequests,
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeServiceUnavailable:    http.StatusServiceUnavailable,
	ErrCodeInvalidInput:          http.StatusBadRequest,
	ErrCodeUnparseable:           http.StatusUnprocessableEntity,
	ErrCodeAmbiguousUnresolvable: http.StatusUnprocessableEntity,
	ErrCodeGhostTime:             http.StatusUnprocessableEntity,
	ErrCodeInvalidContext:        http.StatusBadRequest,
	ErrCodeInternal:              http.StatusInternalServerError,
}

// APIError represents a structured error for API responses.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Body is the full error envelope body when the error came from the
	// resolution engine.
	Body *timeref.ErrorBody
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status for the error code.
func (e *APIError) Status() int {
	return StatusOf(e.Code)
}

// Envelope returns the JSON error envelope.
func (e *APIError) Envelope() timeref.ErrorResponse {
	if e.Body != nil {
		return timeref.ErrorResponse{Error: *e.Body}
	}
	return timeref.ErrorResponse{Error: timeref.ErrorBody{Code: string(e.Code), Message: e.Message}}
}

// StatusOf maps an error code to its HTTP status. Unknown codes are 500.
func StatusOf(code ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid input error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidInput, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *APIError {
	return &APIError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// Internal wraps an unexpected error. The cause is never sent to clients.
func Internal(cause error) *APIError {
	return &APIError{Code: ErrCodeInternal, Message: "internal server error", Cause: cause}
}

// FromResolution converts an engine error into an API error, keeping the
// partial data the engine attached.
func FromResolution(err error) *APIError {
	body := timeref.NewErrorBody(err)
	return &APIError{Code: ErrorCode(body.Code), Message: body.Message, Cause: err, Body: &body}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an APIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Code
	}
	return defaultCode
}
