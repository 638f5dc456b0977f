package models

// ArtifactType is derived from the uploaded file's extension, never taken
// from the client.
type ArtifactType string

const (
	ArtifactTypeAPK ArtifactType = "apk"
	ArtifactTypeAAB ArtifactType = "aab"
)

// Release describes one uploaded artifact version.
type Release struct {
	BaseModel
	AppID        string       `gorm:"size:256;not null;index" json:"appId"` // com.example.app
	AppName      string       `gorm:"size:256;not null" json:"appName"`
	VersionName  string       `gorm:"size:64;not null" json:"versionName"` // e.g. 1.2.3
	VersionCode  int          `gorm:"not null" json:"versionCode"`
	ArtifactType ArtifactType `gorm:"size:8;not null" json:"artifactType"`
	FileName     string       `gorm:"size:512;not null;uniqueIndex" json:"fileName"` // storage key
	FileSize     int64        `gorm:"not null" json:"fileSize"`
	SHA256       string       `gorm:"size:64;not null;column:sha256" json:"sha256"`
	ReleaseNotes string       `gorm:"type:text" json:"releaseNotes"`
	UploadedByIP string       `gorm:"size:64;column:uploaded_by_ip" json:"uploadedByIp,omitempty"`

	// Downloads only grows, and only through the atomic increment in the
	// release repository.
	Downloads int64 `gorm:"not null;default:0" json:"downloads"`
}

func (Release) TableName() string {
	return "releases"
}

// DownloadLog is one download event. Rows are append-only and survive the
// deletion of their Release.
type DownloadLog struct {
	BaseModel
	ReleaseID string `gorm:"type:uuid;not null;index" json:"releaseId"`
	IP        string `gorm:"size:64" json:"ip,omitempty"`
	UserAgent string `gorm:"size:512" json:"userAgent,omitempty"`
}

func (DownloadLog) TableName() string {
	return "download_logs"
}
