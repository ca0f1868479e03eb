package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Media pipeline errors
const (
	// ErrCodeUnsupportedMediaType indicates the file extension is not in the allow-list.
	ErrCodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	// ErrCodeConversionFailed indicates the audio could not be decoded or transcoded.
	ErrCodeConversionFailed ErrorCode = "CONVERSION_FAILED"
	// ErrCodeInferenceUnavailable indicates the shared inference resource is not ready.
	ErrCodeInferenceUnavailable ErrorCode = "INFERENCE_UNAVAILABLE"
	// ErrCodeDiarizationFailed indicates the diarization backend errored.
	// Non-fatal: it only downgrades the enrichment.
	ErrCodeDiarizationFailed ErrorCode = "DIARIZATION_FAILED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodePayloadTooLarge indicates the uploaded file exceeds the size limit.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeInferenceUnavailable: true,
	ErrCodeDatabaseError:        true,
	ErrCodeExternalService:      true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Note that the task pipeline itself never retries; the flag is advisory for
// external schedulers.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
