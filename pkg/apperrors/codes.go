package apperrors

// ErrorCode enumerates every error kind the service can return. The set is
// closed: handlers translate codes to HTTP statuses, nothing else leaks out.
type ErrorCode string

const (
	// System failures.
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodeStorageError  ErrorCode = "STORAGE_ERROR"

	// Request validation.
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"

	// Gating.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"
)
