package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Storage keeps artifact blobs in an S3-compatible bucket (AWS S3 or
// Cloudflare R2 via a custom endpoint).
type S3Storage struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage builds an S3-backed artifact storage.
func NewS3Storage(cfg Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for s3 storage")
	}

	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Region == "" {
		// R2 and other S3-compatible stores use a pseudo region.
		awsConfig.Region = aws.String("auto")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
	}

	return &S3Storage{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
	}, nil
}

// Store uploads the stream under a timestamped key. The size guard wraps
// the reader, so an oversized stream aborts the multipart upload mid-flight
// and the incomplete object is removed.
func (s *S3Storage) Store(ctx context.Context, originalName string, r io.Reader, sizeLimit int64) (string, int64, error) {
	if !ValidExtension(originalName) {
		return "", 0, ErrInvalidExtension
	}

	key := fmt.Sprintf("%d__%s", time.Now().UnixNano(), SanitizeName(originalName))
	guard := &limitReader{r: r, remaining: sizeLimit}

	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        guard,
		ContentType: aws.String("application/octet-stream"),
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		_ = s.Delete(ctx, key)
		if guard.exceeded {
			return "", 0, ErrFileTooLarge
		}
		return "", 0, fmt.Errorf("failed to upload to s3: %w", err)
	}
	return key, guard.read, nil
}

// Open retrieves the stored bytes.
func (s *S3Storage) Open(ctx context.Context, storedKey string) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storedKey),
	}

	result, err := s.client.GetObjectWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get from s3: %w", err)
	}
	return result.Body, nil
}

// Delete removes the object. S3 deletes are idempotent already.
func (s *S3Storage) Delete(ctx context.Context, storedKey string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storedKey),
	}

	if _, err := s.client.DeleteObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

// URL returns the public object URL.
func (s *S3Storage) URL(storedKey string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, storedKey)
}

// limitReader fails the surrounding upload once more than remaining bytes
// have been read.
type limitReader struct {
	r         io.Reader
	remaining int64
	read      int64
	exceeded  bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if n > 0 {
		l.read += int64(n)
		if l.remaining > 0 && l.read > l.remaining {
			l.exceeded = true
			return n, ErrFileTooLarge
		}
	}
	return n, err
}
