package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adforge/internal/domain"
	"adforge/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.ProjectID,
		job.ProviderJobID,
		job.Kind,
		job.Status,
		job.InputRefs,
		job.Attempt,
		job.OutputURLs,
		job.ErrorMessage,
	)
	return err
}

// Update persists the mutable fields of a job.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, sqlinline.QUpdateJob,
		job.ID,
		job.ProviderJobID,
		job.Status,
		job.Attempt,
		job.OutputURLs,
		job.ErrorMessage,
		job.CompletedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QSelectJobByID, jobID)
	return scanJob(row)
}

// ClaimNext atomically picks the oldest queued job and marks it in flight.
// Returns domain.ErrNotFound when no job is waiting.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QClaimNextJob)
	return scanJob(row)
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&job.ProviderJobID,
		&job.Kind,
		&job.Status,
		&job.InputRefs,
		&job.Attempt,
		&job.OutputURLs,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
