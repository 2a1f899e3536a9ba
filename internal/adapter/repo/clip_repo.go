package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"adforge/internal/domain"
	"adforge/internal/sqlinline"
)

// ClipRepositoryPG implements domain.ClipRepository.
type ClipRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewClipRepository(pool *pgxpool.Pool) *ClipRepositoryPG {
	return &ClipRepositoryPG{pool: pool}
}

// ListByProject returns a project's clips in timeline order.
func (r *ClipRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Clip, error) {
	rows, err := r.pool.Query(ctx, sqlinline.QListClipsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []domain.Clip
	for rows.Next() {
		var c domain.Clip
		if err := rows.Scan(
			&c.ID,
			&c.ProjectID,
			&c.ArtifactKey,
			&c.TrimStart,
			&c.TrimEnd,
			&c.SourceDuration,
			&c.Order,
			&c.EditedKey,
		); err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

// ReplaceAll swaps a project's persisted timeline for the given clips in one
// transaction. The in-memory editor is the source of truth; persistence
// follows it wholesale.
func (r *ClipRepositoryPG) ReplaceAll(ctx context.Context, projectID string, clips []domain.Clip) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin clip replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sqlinline.QDeleteClipsByProject, projectID); err != nil {
		return fmt.Errorf("clear clips for %s: %w", projectID, err)
	}
	for _, c := range clips {
		if _, err := tx.Exec(ctx, sqlinline.QInsertClip,
			c.ID,
			projectID,
			c.ArtifactKey,
			c.TrimStart,
			c.TrimEnd,
			c.SourceDuration,
			c.Order,
			c.EditedKey,
		); err != nil {
			return fmt.Errorf("insert clip %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

var _ domain.ClipRepository = (*ClipRepositoryPG)(nil)
