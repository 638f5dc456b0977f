package services

import (
	"context"

	"appdist_backend/internal/logger"
	"appdist_backend/internal/models"
	"appdist_backend/internal/repositories"
	"appdist_backend/internal/services/dto"
	"appdist_backend/internal/storage"
	"appdist_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RetrievalService serves the read side of the catalog: search, detail,
// download accounting and guarded deletion.
type RetrievalService interface {
	List(db *gorm.DB, query dto.ListQuery) (*dto.ListResponse, error)
	Get(db *gorm.DB, id string) (*models.Release, error)
	Download(ctx context.Context, db *gorm.DB, id, ip, userAgent string) (*dto.DownloadResponse, error)
	Delete(ctx context.Context, db *gorm.DB, id string) error
}

type retrievalService struct {
	releaseRepo repositories.ReleaseRepository
	storage     storage.ArtifactStorage
}

func NewRetrievalService(releaseRepo repositories.ReleaseRepository, store storage.ArtifactStorage) RetrievalService {
	return &retrievalService{
		releaseRepo: releaseRepo,
		storage:     store,
	}
}

// List clamps the paging window and returns one createdAt-descending page
// together with the pre-pagination total.
func (s *retrievalService) List(db *gorm.DB, query dto.ListQuery) (*dto.ListResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	items, total, err := s.releaseRepo.SearchReleases(db, repositories.ReleaseFilters{
		Query:  query.Q,
		AppID:  query.AppID,
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if items == nil {
		items = []models.Release{}
	}

	return &dto.ListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

func (s *retrievalService) Get(db *gorm.DB, id string) (*models.Release, error) {
	release, err := s.releaseRepo.FindReleaseByID(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrReleaseNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return release, nil
}

// Download increments the counter atomically and appends one DownloadLog
// row for the same event. The counter is the source of truth: a failed log
// append is tolerated and only logged.
func (s *retrievalService) Download(ctx context.Context, db *gorm.DB, id, ip, userAgent string) (*dto.DownloadResponse, error) {
	release, err := s.releaseRepo.FindReleaseByID(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrReleaseNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	if err := s.releaseRepo.IncrementDownloads(db, id); err != nil {
		if apperrors.Is(err, repositories.ErrReleaseNotFound) {
			// Deleted between the lookup and the increment.
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	entry := &models.DownloadLog{
		ReleaseID: release.ID,
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.releaseRepo.AppendDownloadLog(db, entry); err != nil {
		logger.CtxWithError(ctx, "download log append failed", err, "release_id", release.ID)
	}

	return &dto.DownloadResponse{URL: s.storage.URL(release.FileName)}, nil
}

// Delete removes the record first and the blob second. A missing record is
// a NotFound with no storage call; a failed blob delete after a removed
// record is logged, not surfaced, matching the record-first contract.
// Download logs of the deleted release are never cascade-deleted.
func (s *retrievalService) Delete(ctx context.Context, db *gorm.DB, id string) error {
	release, err := s.releaseRepo.DeleteRelease(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrReleaseNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}

	if err := s.storage.Delete(ctx, release.FileName); err != nil {
		logger.CtxWithError(ctx, "blob delete failed after record removal", err,
			"stored_key", release.FileName)
	}

	logger.CtxInfo(ctx, "release deleted", "release_id", id, "stored_key", release.FileName)
	return nil
}
