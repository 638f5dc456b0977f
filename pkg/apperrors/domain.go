package apperrors

import (
	"net/http"
)

// Factories and predefined variables for the release-distribution domain.

// ErrNotFound converts a repository miss (e.g. gorm.ErrRecordNotFound)
// into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "release", "Not found", http.StatusNotFound)
}

// ErrStorage wraps a filesystem or blob-store failure.
func ErrStorage(err error, message string) *AppError {
	return Wrap(err, CodeStorageError, "storage", message, http.StatusInternalServerError)
}

// ErrFileTooLarge - the uploaded artifact exceeds the configured limit.
// The partially written blob has already been removed when this is returned.
var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"upload",
	"File size exceeds the allowed limit",
	http.StatusRequestEntityTooLarge,
)

// ErrInvalidFileType - the artifact extension is not .apk / .aab.
var ErrInvalidFileType = New(
	CodeValidationFailed,
	"upload",
	"Only .apk or .aab files are allowed",
	http.StatusBadRequest,
)

// ErrMissingFile - the multipart request carries no "file" part.
var ErrMissingFile = New(
	CodeValidationFailed,
	"upload",
	"No file provided",
	http.StatusBadRequest,
)

// ErrInvalidUploadKey - the shared upload secret is absent or wrong.
var ErrInvalidUploadKey = New(
	CodeUnauthorized,
	"upload",
	"Invalid upload key",
	http.StatusUnauthorized,
)

// ErrRateLimited - the client exceeded an admission-control limiter.
var ErrRateLimited = New(
	CodeRateLimited,
	"admission",
	"Too many requests",
	http.StatusTooManyRequests,
)
