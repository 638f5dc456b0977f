// Package apkmeta derives application identity and version from uploaded
// package files. Extraction is best-effort: a missing parser or a parse
// failure yields the sentinel metadata, never an error that aborts
// ingestion.
package apkmeta

import (
	"appdist_backend/internal/models"
)

// Metadata is the identity tuple pulled out of a package file.
type Metadata struct {
	AppID       string `json:"appId"`
	AppName     string `json:"appName"`
	VersionName string `json:"versionName"`
	VersionCode int    `json:"versionCode"`
}

// Sentinel is returned whenever no parser is registered for an artifact
// type or the registered parser fails.
func Sentinel() Metadata {
	return Metadata{
		AppID:       "unknown",
		AppName:     "unknown",
		VersionName: "0.0.0",
		VersionCode: 0,
	}
}

// Parser reads one package format. Implementations may fail; the extractor
// absorbs the failure.
type Parser interface {
	Parse(path string) (Metadata, error)
}

// Extractor routes a stored file to the parser registered for its artifact
// type. The zero registry extracts nothing and always falls back.
type Extractor struct {
	parsers map[models.ArtifactType]Parser
}

// NewExtractor builds an extractor with the default parser set: a manifest
// parser for apk, nothing for aab.
func NewExtractor() *Extractor {
	e := &Extractor{parsers: map[models.ArtifactType]Parser{}}
	e.Register(models.ArtifactTypeAPK, apkParser{})
	return e
}

// NewEmptyExtractor builds an extractor with no parsers registered.
func NewEmptyExtractor() *Extractor {
	return &Extractor{parsers: map[models.ArtifactType]Parser{}}
}

// Register installs (or replaces) the parser for an artifact type.
func (e *Extractor) Register(t models.ArtifactType, p Parser) {
	e.parsers[t] = p
}

// Extract returns the metadata for the stored file, or the sentinel when
// the type has no parser or parsing fails.
func (e *Extractor) Extract(path string, t models.ArtifactType) Metadata {
	p, ok := e.parsers[t]
	if !ok {
		return Sentinel()
	}
	meta, err := p.Parse(path)
	if err != nil {
		return Sentinel()
	}
	return meta
}
