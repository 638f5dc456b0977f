package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage keeps artifact blobs in a single directory on disk.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates the artifact root if absent and returns a storage
// rooted there. Creation is idempotent; callers never re-check existence.
func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./uploads"
	}

	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		baseURL:  cfg.BaseURL,
	}, nil
}

// BasePath returns the artifact root directory.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Store writes the stream to a freshly created file. The key combines a
// nanosecond timestamp with the sanitized original name; O_EXCL creation
// guarantees no overwrite even when concurrent uploads share a name and a
// timestamp.
func (s *LocalStorage) Store(ctx context.Context, originalName string, r io.Reader, sizeLimit int64) (string, int64, error) {
	if !ValidExtension(originalName) {
		return "", 0, ErrInvalidExtension
	}

	safe := SanitizeName(originalName)

	var f *os.File
	var key string
	for {
		key = fmt.Sprintf("%d__%s", time.Now().UnixNano(), safe)
		var err error
		f, err = os.OpenFile(filepath.Join(s.basePath, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", 0, fmt.Errorf("failed to create artifact file: %w", err)
		}
		// Same name landed on the same nanosecond; take the next tick.
	}

	n, err := copyLimited(ctx, f, r, sizeLimit)
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to flush artifact file: %w", closeErr)
	}
	if err != nil {
		// Never leave a partial blob behind a failed write.
		_ = os.Remove(filepath.Join(s.basePath, key))
		return "", 0, err
	}
	return key, n, nil
}

// Open returns the stored bytes for verification or serving.
func (s *LocalStorage) Open(ctx context.Context, storedKey string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, storedKey))
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// Delete removes the blob. Deleting a missing key is a no-op.
func (s *LocalStorage) Delete(ctx context.Context, storedKey string) error {
	if err := os.Remove(filepath.Join(s.basePath, storedKey)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// URL returns the public path under which the static file collaborator
// serves this key.
func (s *LocalStorage) URL(storedKey string) string {
	if s.baseURL == "" {
		return fmt.Sprintf("/files/%s", storedKey)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, storedKey)
}

// Path resolves a stored key to its absolute location on disk.
func (s *LocalStorage) Path(storedKey string) string {
	return filepath.Join(s.basePath, storedKey)
}

// copyLimited copies r into w but fails with ErrFileTooLarge as soon as the
// stream exceeds limit. It also honors context cancellation between chunks
// so a disconnected uploader stops the write early.
func copyLimited(ctx context.Context, w io.Writer, r io.Reader, limit int64) (int64, error) {
	var written int64
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if limit > 0 && written+int64(n) > limit {
				return written, ErrFileTooLarge
			}
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, fmt.Errorf("failed to write artifact: %w", werr)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("failed to read upload stream: %w", rerr)
		}
	}
}
