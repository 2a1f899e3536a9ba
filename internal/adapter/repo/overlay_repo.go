package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"adforge/internal/domain"
	"adforge/internal/sqlinline"
)

// OverlayRepositoryPG implements domain.OverlayRepository.
type OverlayRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewOverlayRepository(pool *pgxpool.Pool) *OverlayRepositoryPG {
	return &OverlayRepositoryPG{pool: pool}
}

func (r *OverlayRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Overlay, error) {
	rows, err := r.pool.Query(ctx, sqlinline.QListOverlaysByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overlays []domain.Overlay
	for rows.Next() {
		var o domain.Overlay
		if err := rows.Scan(
			&o.ID,
			&o.ProjectID,
			&o.Text,
			&o.X,
			&o.Y,
			&o.StartTime,
			&o.EndTime,
			&o.FontSize,
			&o.Color,
			&o.BorderColor,
			&o.BorderWidth,
			&o.Background,
			&o.ZIndex,
		); err != nil {
			return nil, err
		}
		overlays = append(overlays, o)
	}
	return overlays, rows.Err()
}

func (r *OverlayRepositoryPG) ReplaceAll(ctx context.Context, projectID string, overlays []domain.Overlay) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin overlay replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sqlinline.QDeleteOverlaysByProject, projectID); err != nil {
		return fmt.Errorf("clear overlays for %s: %w", projectID, err)
	}
	for _, o := range overlays {
		if _, err := tx.Exec(ctx, sqlinline.QInsertOverlay,
			o.ID,
			projectID,
			o.Text,
			o.X,
			o.Y,
			o.StartTime,
			o.EndTime,
			o.FontSize,
			o.Color,
			o.BorderColor,
			o.BorderWidth,
			o.Background,
			o.ZIndex,
		); err != nil {
			return fmt.Errorf("insert overlay %s: %w", o.ID, err)
		}
	}
	return tx.Commit(ctx)
}

var _ domain.OverlayRepository = (*OverlayRepositoryPG)(nil)
