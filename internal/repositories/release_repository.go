package repositories

import (
	"errors"
	"strings"

	"appdist_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrReleaseNotFound = errors.New("release not found")
)

// ReleaseFilters narrows a catalog search. Query matches appName, appId or
// versionName case-insensitively; AppID is an exact match. Offset/Limit are
// assumed to be clamped by the caller.
type ReleaseFilters struct {
	Query  string
	AppID  string
	Offset int
	Limit  int
}

type ReleaseRepository interface {
	// Release operations
	CreateRelease(db *gorm.DB, release *models.Release) error
	FindReleaseByID(db *gorm.DB, id string) (*models.Release, error)
	SearchReleases(db *gorm.DB, filters ReleaseFilters) ([]models.Release, int64, error)
	DeleteRelease(db *gorm.DB, id string) (*models.Release, error)

	// Download accounting
	IncrementDownloads(db *gorm.DB, id string) error
	AppendDownloadLog(db *gorm.DB, entry *models.DownloadLog) error
	FindDownloadLogs(db *gorm.DB, releaseID string) ([]models.DownloadLog, error)
}

type ReleaseRepositoryImpl struct{}

func NewReleaseRepository() ReleaseRepository {
	return &ReleaseRepositoryImpl{}
}

func (r *ReleaseRepositoryImpl) CreateRelease(db *gorm.DB, release *models.Release) error {
	return db.Create(release).Error
}

func (r *ReleaseRepositoryImpl) FindReleaseByID(db *gorm.DB, id string) (*models.Release, error) {
	var release models.Release
	if err := db.First(&release, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReleaseNotFound
		}
		return nil, err
	}
	return &release, nil
}

// SearchReleases returns one page ordered by creation time descending, plus
// the total count matching the filters before pagination.
func (r *ReleaseRepositoryImpl) SearchReleases(db *gorm.DB, filters ReleaseFilters) ([]models.Release, int64, error) {
	query := db.Model(&models.Release{})

	if filters.AppID != "" {
		query = query.Where("app_id = ?", filters.AppID)
	}
	if filters.Query != "" {
		pattern := "%" + strings.ToLower(filters.Query) + "%"
		query = query.Where(
			"LOWER(app_name) LIKE ? OR LOWER(app_id) LIKE ? OR LOWER(version_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var releases []models.Release
	err := query.
		Order("created_at DESC").
		Offset(filters.Offset).
		Limit(filters.Limit).
		Find(&releases).Error
	if err != nil {
		return nil, 0, err
	}
	return releases, total, nil
}

// DeleteRelease removes the record and returns it so the caller can clean
// up the blob. Download logs are intentionally left in place.
func (r *ReleaseRepositoryImpl) DeleteRelease(db *gorm.DB, id string) (*models.Release, error) {
	release, err := r.FindReleaseByID(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Delete(&models.Release{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return release, nil
}

// IncrementDownloads bumps the counter with a single UPDATE so concurrent
// downloads never lose increments to a read-modify-write race.
func (r *ReleaseRepositoryImpl) IncrementDownloads(db *gorm.DB, id string) error {
	result := db.Model(&models.Release{}).
		Where("id = ?", id).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReleaseNotFound
	}
	return nil
}

func (r *ReleaseRepositoryImpl) AppendDownloadLog(db *gorm.DB, entry *models.DownloadLog) error {
	return db.Create(entry).Error
}

func (r *ReleaseRepositoryImpl) FindDownloadLogs(db *gorm.DB, releaseID string) ([]models.DownloadLog, error) {
	var logs []models.DownloadLog
	if err := db.Where("release_id = ?", releaseID).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
