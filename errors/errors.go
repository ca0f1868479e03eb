// Package errors provides unified error handling for the transcription
// service. It implements structured error types with error codes, HTTP status
// mapping, and retryable detection.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// UnsupportedMediaType creates a new AppError for a file extension outside the allow-list.
func UnsupportedMediaType(extension string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedMediaType, Message: fmt.Sprintf("Unsupported file type %s.", extension),
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false,
		Details: map[string]any{"extension": extension},
	}
}

// ConversionFailed creates a new AppError for a failed audio decode or transcode.
// The transcoder diagnostic output, if any, is attached as a detail.
func ConversionFailed(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConversionFailed, Message: fmt.Sprintf("Audio conversion failed: %s.", reason),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false, Cause: cause,
	}
}

// InferenceUnavailable creates a new AppError for an unreachable or erroring
// inference backend.
func InferenceUnavailable(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInferenceUnavailable, Message: "The transcription model is unavailable. Please try again later.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true, Cause: cause,
	}
}

// DiarizationFailed creates a new AppError for a failed diarization call.
// Callers swallow this at the merge site; it never fails a task.
func DiarizationFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDiarizationFailed, Message: "Speaker diarization failed.",
		HTTPStatus: http.StatusBadGateway, Retryable: false, Cause: cause,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// PayloadTooLarge creates a new AppError for an oversized upload.
func PayloadTooLarge(maxSize string) *AppError {
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: fmt.Sprintf("Uploaded file exceeds the %s limit.", maxSize),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"max_size": maxSize},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred. Please try again.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}
