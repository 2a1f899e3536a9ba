package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"adforge/internal/domain"
	"adforge/internal/sqlinline"
)

// ProjectLookupPG is the read-only persistence view cleanup depends on.
type ProjectLookupPG struct {
	pool *pgxpool.Pool
}

func NewProjectLookup(pool *pgxpool.Pool) *ProjectLookupPG {
	return &ProjectLookupPG{pool: pool}
}

// ListProjectIDs returns every project id that still owns a record.
func (r *ProjectLookupPG) ListProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, sqlinline.QListProjectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListArtifactReferences returns every storage key a live record for the
// project still points at. Files outside this set are orphan candidates.
func (r *ProjectLookupPG) ListArtifactReferences(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, sqlinline.QListArtifactReferences, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

var _ domain.ProjectLookup = (*ProjectLookupPG)(nil)
