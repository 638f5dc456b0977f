package dto

import (
	"mime/multipart"

	"appdist_backend/internal/models"
)

// UploadRequest carries everything the ingestion service needs from one
// multipart upload.
type UploadRequest struct {
	File         *multipart.FileHeader `form:"-"`
	ReleaseNotes string                `form:"releaseNotes" json:"releaseNotes" validate:"omitempty,max=10000"`
	ClientIP     string                `form:"-"`
}

// UploadResponse mirrors the response body of a successful upload.
type UploadResponse struct {
	Message     string          `json:"message"`
	Release     *models.Release `json:"release"`
	DownloadURL string          `json:"downloadUrl"`
}

// ListQuery is the search surface of the catalog. Page and Size are
// clamped, not rejected.
type ListQuery struct {
	Q     string `form:"q"`
	AppID string `form:"appId"`
	Page  int    `form:"page"`
	Size  int    `form:"size"`
}

// ListResponse is one page of the filtered catalog plus the pre-pagination
// total.
type ListResponse struct {
	Items []models.Release `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// DownloadResponse returns the URL under which the artifact bytes are
// served; the bytes themselves come from the static file collaborator.
type DownloadResponse struct {
	URL string `json:"url"`
}

// MessageResponse is the generic `{message}` body.
type MessageResponse struct {
	Message string `json:"message"`
}
