// Package storage owns the artifact blob directory: size-limited writes
// under collision-resistant keys, byte retrieval and idempotent deletes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// Errors surfaced by Store. Callers translate them at the service boundary.
var (
	// ErrFileTooLarge is returned when a stream exceeds the size limit.
	// Detection happens during the write; any partial blob is removed
	// before the error is returned.
	ErrFileTooLarge = errors.New("storage: file exceeds size limit")

	// ErrInvalidExtension is returned for original names outside the
	// accepted artifact extensions.
	ErrInvalidExtension = errors.New("storage: only .apk or .aab allowed")
)

// ArtifactStorage is the blob side of the release catalog. Keys returned by
// Store map one-to-one to stored byte blobs.
type ArtifactStorage interface {
	// Store writes the stream under a fresh collision-resistant key derived
	// from originalName and returns that key. The stream is rejected with
	// ErrFileTooLarge as soon as it exceeds sizeLimit, and with
	// ErrInvalidExtension before any byte is written when the original
	// name's extension is not an artifact extension.
	Store(ctx context.Context, originalName string, r io.Reader, sizeLimit int64) (storedKey string, size int64, err error)

	// Open returns the bytes stored under key.
	Open(ctx context.Context, storedKey string) (io.ReadCloser, error)

	// Delete removes the blob under key. A missing blob is not an error.
	Delete(ctx context.Context, storedKey string) error

	// URL returns the caller-resolvable download URL for a stored key.
	URL(storedKey string) string
}

// Config selects and parameterizes a storage backend.
type Config struct {
	Type      string // local, s3
	BasePath  string // for local storage
	BaseURL   string // public URL base; local default is /files
	Bucket    string // for S3/R2
	Region    string // for S3
	AccessKey string // for S3/R2
	SecretKey string // for S3/R2
	Endpoint  string // for R2 or custom S3
	UseSSL    bool
}

// NewStorage builds a backend from configuration.
func NewStorage(cfg Config) (ArtifactStorage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName rewrites every character outside [A-Za-z0-9._-] to an
// underscore so an original file name is always a safe key component.
func SanitizeName(name string) string {
	return unsafeKeyChars.ReplaceAllString(filepath.Base(name), "_")
}

// ValidExtension reports whether the original name carries an accepted
// artifact extension. Content-type headers are never consulted.
func ValidExtension(originalName string) bool {
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".apk", ".aab":
		return true
	}
	return false
}
