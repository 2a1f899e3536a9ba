package domain

import "context"

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	ClaimNext(ctx context.Context) (*Job, error)
}

// ClipRepository handles persistence for timeline clips.
type ClipRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]Clip, error)
	ReplaceAll(ctx context.Context, projectID string, clips []Clip) error
}

// OverlayRepository handles persistence for text overlays.
type OverlayRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]Overlay, error)
	ReplaceAll(ctx context.Context, projectID string, overlays []Overlay) error
}

// ArtifactRepository handles persistence for stored artifacts.
type ArtifactRepository interface {
	Save(ctx context.Context, artifact *Artifact) error
	GetByKey(ctx context.Context, key string) (*Artifact, error)
	ListByProject(ctx context.Context, projectID string) ([]Artifact, error)
	DeleteByKey(ctx context.Context, key string) error
}

// ProjectLookup is the read-only view of the external persistence
// collaborator that cleanup needs: which projects exist and which artifact
// keys are still referenced by live records.
type ProjectLookup interface {
	ListProjectIDs(ctx context.Context) ([]string, error)
	ListArtifactReferences(ctx context.Context, projectID string) ([]string, error)
}
