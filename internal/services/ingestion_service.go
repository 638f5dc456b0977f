package services

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"appdist_backend/internal/apkmeta"
	"appdist_backend/internal/checksum"
	"appdist_backend/internal/logger"
	"appdist_backend/internal/models"
	"appdist_backend/internal/repositories"
	"appdist_backend/internal/services/dto"
	"appdist_backend/internal/storage"
	"appdist_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// IngestionService turns a validated multipart upload into a stored blob
// and a persisted Release record.
type IngestionService interface {
	Upload(ctx context.Context, db *gorm.DB, req *dto.UploadRequest) (*dto.UploadResponse, error)
}

type ingestionService struct {
	releaseRepo  repositories.ReleaseRepository
	storage      storage.ArtifactStorage
	extractor    *apkmeta.Extractor
	maxFileBytes int64
}

func NewIngestionService(
	releaseRepo repositories.ReleaseRepository,
	store storage.ArtifactStorage,
	extractor *apkmeta.Extractor,
	maxFileBytes int64,
) IngestionService {
	return &ingestionService{
		releaseRepo:  releaseRepo,
		storage:      store,
		extractor:    extractor,
		maxFileBytes: maxFileBytes,
	}
}

// Upload writes the artifact bytes, derives the identity metadata and the
// content digest, and persists the Release. If the record cannot be
// persisted after the bytes were written, the blob stays behind as an
// orphan for the external reconciliation sweep; there is no automatic
// rollback across the storage/record boundary.
func (s *ingestionService) Upload(ctx context.Context, db *gorm.DB, req *dto.UploadRequest) (*dto.UploadResponse, error) {
	if req.File == nil {
		return nil, apperrors.ErrMissingFile
	}

	src, err := req.File.Open()
	if err != nil {
		return nil, apperrors.NewBadRequestError("Cannot read uploaded file")
	}
	defer src.Close()

	storedKey, size, err := s.storage.Store(ctx, req.File.Filename, src, s.maxFileBytes)
	if err != nil {
		switch {
		case apperrors.Is(err, storage.ErrInvalidExtension):
			return nil, apperrors.ErrInvalidFileType
		case apperrors.Is(err, storage.ErrFileTooLarge):
			return nil, apperrors.ErrFileTooLarge
		default:
			return nil, apperrors.ErrStorage(err, "Failed to store artifact")
		}
	}

	artifactType := artifactTypeOf(storedKey)
	meta := s.extractMetadata(req.File, storedKey, artifactType)

	digest, err := s.digestStored(ctx, storedKey)
	if err != nil {
		// Bytes are durable at this point; the record never existed, so the
		// blob is an orphan until the cleanup sweep finds it.
		return nil, apperrors.InternalError(err)
	}

	release := &models.Release{
		AppID:        meta.AppID,
		AppName:      meta.AppName,
		VersionName:  meta.VersionName,
		VersionCode:  meta.VersionCode,
		ArtifactType: artifactType,
		FileName:     storedKey,
		FileSize:     size,
		SHA256:       digest,
		ReleaseNotes: req.ReleaseNotes,
		UploadedByIP: req.ClientIP,
	}

	if err := s.releaseRepo.CreateRelease(db, release); err != nil {
		logger.CtxWithError(ctx, "release record creation failed, blob orphaned", err,
			"stored_key", storedKey)
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "artifact ingested",
		"release_id", release.ID,
		"app_id", release.AppID,
		"artifact_type", release.ArtifactType,
		"size_bytes", release.FileSize,
	)

	return &dto.UploadResponse{
		Message:     "Uploaded",
		Release:     release,
		DownloadURL: s.storage.URL(storedKey),
	}, nil
}

// artifactTypeOf derives the type from the stored key's extension,
// lowercased with the dot stripped. The client never chooses it.
func artifactTypeOf(storedKey string) models.ArtifactType {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(storedKey)), ".")
	return models.ArtifactType(ext)
}

// digestStored recomputes the digest over the bytes as stored, so the
// recorded sha256 always describes exactly what a download will serve.
func (s *ingestionService) digestStored(ctx context.Context, storedKey string) (string, error) {
	r, err := s.storage.Open(ctx, storedKey)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return checksum.SHA256Reader(r)
}

// localPather is implemented by backends whose stored keys resolve to
// files on the local disk.
type localPather interface {
	Path(storedKey string) string
}

// extractMetadata runs the extractor over the stored file. Remote backends
// spill the still-buffered upload into a temp file for the parser. Every
// failure path ends in the sentinel.
func (s *ingestionService) extractMetadata(file *multipart.FileHeader, storedKey string, t models.ArtifactType) apkmeta.Metadata {
	if p, ok := s.storage.(localPather); ok {
		return s.extractor.Extract(p.Path(storedKey), t)
	}

	src, err := file.Open()
	if err != nil {
		return apkmeta.Sentinel()
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "artifact-*"+filepath.Ext(storedKey))
	if err != nil {
		return apkmeta.Sentinel()
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return apkmeta.Sentinel()
	}
	tmp.Close()

	return s.extractor.Extract(tmp.Name(), t)
}
