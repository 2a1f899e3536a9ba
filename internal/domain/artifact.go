package domain

import "time"

// ArtifactCategory enumerates how a stored binary is used.
type ArtifactCategory string

const (
	CategoryUpload    ArtifactCategory = "upload"
	CategoryGenerated ArtifactCategory = "generated"
	CategoryPreview   ArtifactCategory = "preview"
	CategoryTemp      ArtifactCategory = "temp"
)

// Artifact represents a downloaded or generated binary persisted to durable
// storage, addressed by its storage key.
type Artifact struct {
	Key       string
	LocalPath string
	SizeBytes int64
	MIMEType  string
	ProjectID string
	Category  ArtifactCategory
	CreatedAt time.Time
}
