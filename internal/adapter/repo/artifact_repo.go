package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adforge/internal/domain"
	"adforge/internal/sqlinline"
)

// ArtifactRepositoryPG implements domain.ArtifactRepository.
type ArtifactRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewArtifactRepository(pool *pgxpool.Pool) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{pool: pool}
}

// Save upserts an artifact record keyed by its storage key.
func (r *ArtifactRepositoryPG) Save(ctx context.Context, artifact *domain.Artifact) error {
	_, err := r.pool.Exec(ctx, sqlinline.QUpsertArtifact,
		artifact.Key,
		artifact.LocalPath,
		artifact.SizeBytes,
		artifact.MIMEType,
		artifact.ProjectID,
		artifact.Category,
	)
	return err
}

func (r *ArtifactRepositoryPG) GetByKey(ctx context.Context, key string) (*domain.Artifact, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QSelectArtifactByKey, key)
	var a domain.Artifact
	if err := row.Scan(&a.Key, &a.LocalPath, &a.SizeBytes, &a.MIMEType, &a.ProjectID, &a.Category, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ArtifactRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Artifact, error) {
	rows, err := r.pool.Query(ctx, sqlinline.QListArtifactsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.Key, &a.LocalPath, &a.SizeBytes, &a.MIMEType, &a.ProjectID, &a.Category, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func (r *ArtifactRepositoryPG) DeleteByKey(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, sqlinline.QDeleteArtifactByKey, key)
	return err
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)
