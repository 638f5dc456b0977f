package database

import (
	"appdist_backend/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the release catalog tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Release{},
		&models.DownloadLog{},
	)
}
