package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adforge/internal/domain"
	"adforge/internal/providers/generation"
	"adforge/internal/retry"
	"adforge/internal/storage"
)

// Placement tells the orchestrator where a job's outputs belong once
// downloaded. A nil placement means the caller only wants the output URLs.
type Placement struct {
	ProjectID  string
	Category   domain.ArtifactCategory
	SceneIndex int
}

// Orchestrator drives one generation job end to end and finalizes its
// outputs into durable storage.
type Orchestrator struct {
	provider  Provider
	poller    *Poller
	store     storage.ObjectStore
	artifacts domain.ArtifactRepository
	jobs      domain.JobRepository
	retryCfg  retry.Config
	logger    zerolog.Logger
}

// New wires an orchestrator. The artifact and job repositories may be nil
// when the caller handles persistence itself.
func New(provider Provider, poller *Poller, store storage.ObjectStore, artifacts domain.ArtifactRepository, jobs domain.JobRepository, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		poller:    poller,
		store:     store,
		artifacts: artifacts,
		jobs:      jobs,
		retryCfg:  retry.DefaultConfig(),
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// SetRetryConfig overrides the download retry policy, for tests.
func (o *Orchestrator) SetRetryConfig(cfg retry.Config) { o.retryCfg = cfg }

// RunJob creates the provider-side prediction (unless one already exists),
// polls it to a terminal state, downloads every output into durable storage
// when a placement is supplied, and persists the final job record.
func (o *Orchestrator) RunJob(ctx context.Context, job *domain.Job, input map[string]any, placement *Placement) ([]domain.Artifact, error) {
	if job.ProviderJobID == "" {
		pred, err := o.provider.CreateJob(ctx, generation.CreateRequest{
			Kind:      job.Kind,
			Input:     input,
			InputRefs: job.InputRefs,
		})
		if err != nil {
			o.failJob(ctx, job, err)
			return nil, fmt.Errorf("create job %s: %w", job.ID, err)
		}
		job.ProviderJobID = pred.ID
		if err := job.Transition(domain.JobStatus(pred.Status)); err != nil {
			return nil, err
		}
		o.persistJob(ctx, job)
	}

	pred, err := o.poller.WaitForJob(ctx, job)
	if err != nil {
		o.failJob(ctx, job, err)
		return nil, fmt.Errorf("poll job %s: %w", job.ID, err)
	}

	switch domain.JobStatus(pred.Status) {
	case domain.JobStatusSucceeded:
		// fallthrough to download below
	case domain.JobStatusCanceled:
		o.persistJob(ctx, job)
		return nil, domain.NewGenerationFailed(fmt.Sprintf("job %s canceled by provider", job.ID), false)
	default:
		err := domain.NewGenerationFailed(providerMessage(job.ID, pred.Error), false)
		o.failJob(ctx, job, err)
		return nil, err
	}

	job.OutputURLs = append([]string(nil), pred.Output...)
	if len(job.OutputURLs) == 0 {
		err := domain.NewGenerationFailed(fmt.Sprintf("job %s succeeded with no output", job.ID), false)
		o.failJob(ctx, job, err)
		return nil, err
	}
	o.persistJob(ctx, job)

	if placement == nil {
		return nil, nil
	}

	stored := make([]domain.Artifact, 0, len(job.OutputURLs))
	for i, url := range job.OutputURLs {
		artifact, err := o.DownloadAndSave(ctx, url, Placement{
			ProjectID:  placement.ProjectID,
			Category:   placement.Category,
			SceneIndex: placement.SceneIndex + i,
		})
		if err != nil {
			return stored, fmt.Errorf("finalize output %d of job %s: %w", i, job.ID, err)
		}
		stored = append(stored, *artifact)
	}
	return stored, nil
}

// DownloadAndSave fetches the bytes behind url and writes them to durable
// storage, with its own retry wrapper independent of the poll loop. Each
// attempt logs which leg failed so network fetch and disk write problems are
// distinguishable.
func (o *Orchestrator) DownloadAndSave(ctx context.Context, url string, placement Placement) (*domain.Artifact, error) {
	var artifact *domain.Artifact
	attempt := 0
	err := retry.Do(ctx, o.retryCfg, func(ctx context.Context) error {
		attempt++
		data, mime, err := o.provider.Download(ctx, url)
		if err != nil {
			o.logger.Warn().Err(err).
				Str("url", url).
				Int("attempt", attempt).
				Str("leg", "fetch").
				Msg("download attempt failed")
			return err
		}

		stored, err := o.store.Store(ctx, data, storage.Meta{
			ProjectID: placement.ProjectID,
			Category:  placement.Category,
			MIMEType:  mime,
		})
		if err != nil {
			o.logger.Warn().Err(err).
				Str("url", url).
				Int("attempt", attempt).
				Str("leg", "store").
				Msg("persist attempt failed")
			// Storage failures are local and worth one more try.
			werr := &domain.Error{Code: domain.CodeInternal, Message: "store downloaded bytes", Retryable: true}
			return werr.WithCause(err)
		}

		artifact = &domain.Artifact{
			Key:       stored.Key,
			SizeBytes: int64(len(data)),
			MIMEType:  mime,
			ProjectID: placement.ProjectID,
			Category:  placement.Category,
			CreatedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if o.artifacts != nil {
		if err := o.artifacts.Save(ctx, artifact); err != nil {
			o.logger.Error().Err(err).Str("key", artifact.Key).Msg("artifact row insert failed")
		}
	}
	return artifact, nil
}

// RefineRequest describes an iterative refinement run: the same operation
// applied N times, each iteration's output feeding the next iteration's
// input (background removal is the canonical case).
type RefineRequest struct {
	Kind       domain.JobKind
	InputRef   string
	Iterations int
	Input      map[string]any
}

// RefineResult reports the last usable output and how far the loop got.
type RefineResult struct {
	OutputRef           string
	CompletedIterations int
	FellBack            bool
}

// RefineIteratively runs the refinement loop. If iteration k fails after
// retries the loop stops and the last successful iteration's output is
// returned, so the caller always receives a usable result under partial
// failure.
func (o *Orchestrator) RefineIteratively(ctx context.Context, req RefineRequest) (*RefineResult, error) {
	if req.Iterations <= 0 {
		req.Iterations = 1
	}
	current := req.InputRef
	result := &RefineResult{OutputRef: current}

	for i := 0; i < req.Iterations; i++ {
		out, err := o.runOnce(ctx, req.Kind, current, req.Input)
		if err != nil {
			o.logger.Warn().Err(err).
				Int("iteration", i+1).
				Int("completed", result.CompletedIterations).
				Msg("refinement iteration failed, keeping last good output")
			result.FellBack = true
			return result, nil
		}
		current = out
		result.OutputRef = current
		result.CompletedIterations = i + 1
	}
	return result, nil
}

// BatchItem is one element of a multi-image operation.
type BatchItem struct {
	ID       string
	InputRef string
	Input    map[string]any
}

// BatchResult records the outcome for one batch item. On failure OutputRef
// carries the original, unprocessed ref so the batch as a whole stays usable.
type BatchResult struct {
	ID        string
	OutputRef string
	Err       error
}

// ProcessBatch runs items strictly sequentially to respect the provider's
// rate limits. A failing item is substituted with its original input rather
// than failing the batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context, kind domain.JobKind, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		out, err := o.runOnce(ctx, kind, item.InputRef, item.Input)
		if err != nil {
			o.logger.Warn().Err(err).
				Str("item_id", item.ID).
				Msg("batch item failed, substituting original")
			results = append(results, BatchResult{ID: item.ID, OutputRef: item.InputRef, Err: err})
			continue
		}
		results = append(results, BatchResult{ID: item.ID, OutputRef: out})
	}
	return results
}

// runOnce performs a single create-poll cycle under the retry policy and
// returns the first output URL.
func (o *Orchestrator) runOnce(ctx context.Context, kind domain.JobKind, inputRef string, input map[string]any) (string, error) {
	var outputRef string
	err := retry.Do(ctx, o.retryCfg, func(ctx context.Context) error {
		merged := map[string]any{"image": inputRef}
		for k, v := range input {
			merged[k] = v
		}
		job := &domain.Job{
			ID:        fmt.Sprintf("refine-%d", time.Now().UnixNano()),
			Kind:      kind,
			Status:    domain.JobStatusStarting,
			InputRefs: []string{inputRef},
			CreatedAt: time.Now().UTC(),
		}

		pred, err := o.provider.CreateJob(ctx, generation.CreateRequest{Kind: kind, Input: merged, InputRefs: job.InputRefs})
		if err != nil {
			return err
		}
		job.ProviderJobID = pred.ID
		if err := job.Transition(domain.JobStatus(pred.Status)); err != nil {
			return err
		}

		final, err := o.poller.WaitForJob(ctx, job)
		if err != nil {
			return err
		}
		if domain.JobStatus(final.Status) != domain.JobStatusSucceeded || len(final.Output) == 0 {
			return domain.NewGenerationFailed(providerMessage(job.ID, final.Error), false)
		}
		outputRef = final.Output[0]
		return nil
	})
	return outputRef, err
}

func (o *Orchestrator) failJob(ctx context.Context, job *domain.Job, err error) {
	job.ErrorMessage = err.Error()
	// A poll timeout is not a provider verdict: the remote job may still be
	// running, so the record keeps its non-terminal status with the timeout
	// text in error_message.
	if domain.CodeOf(err) != domain.CodeTimeout && !job.Status.Terminal() {
		_ = job.Transition(domain.JobStatusFailed)
	}
	o.persistJob(ctx, job)
}

func (o *Orchestrator) persistJob(ctx context.Context, job *domain.Job) {
	if o.jobs == nil {
		return
	}
	if err := o.jobs.Update(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("job update failed")
	}
}

func providerMessage(jobID, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return fmt.Sprintf("job %s failed without detail", jobID)
	}
	return fmt.Sprintf("job %s failed: %s", jobID, detail)
}
