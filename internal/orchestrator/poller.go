// Package orchestrator drives externally-hosted generation jobs to
// completion: polling, retrying, downloading outputs, and finalizing results
// into durable storage.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"adforge/internal/domain"
	"adforge/internal/providers/generation"
)

// Provider is the slice of the generation client the orchestrator needs.
type Provider interface {
	CreateJob(ctx context.Context, req generation.CreateRequest) (*generation.Prediction, error)
	GetJob(ctx context.Context, id string) (*generation.Prediction, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// Poller repeatedly reads a job's provider-side status until it reaches a
// terminal state or the poll budget runs out. Polling is client-driven; the
// provider offers no push channel.
type Poller struct {
	provider    Provider
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger
}

// NewPoller builds a poller with the given budget. The sleep function is
// injectable so tests can simulate many poll cycles without wall-clock delay.
func NewPoller(provider Provider, interval time.Duration, maxAttempts int, logger zerolog.Logger) *Poller {
	return &Poller{
		provider:    provider,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepTimer,
		logger:      logger.With().Str("component", "poller").Logger(),
	}
}

// SetSleep replaces the inter-poll wait, for tests.
func (p *Poller) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	p.sleep = fn
}

// WaitForJob polls until job reaches a terminal state. Exhausting the budget
// surfaces TIMEOUT, distinct from a provider-side failure: the remote job may
// still be running, the poller simply stops waiting. Transient read errors
// consume an attempt and the loop continues.
func (p *Poller) WaitForJob(ctx context.Context, job *domain.Job) (*generation.Prediction, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job.Attempt = attempt

		pred, err := p.provider.GetJob(ctx, job.ProviderJobID)
		if err != nil {
			if !domain.IsRetryable(err) {
				return nil, err
			}
			p.logger.Warn().Err(err).
				Str("job_id", job.ID).
				Int("attempt", attempt).
				Msg("transient poll failure")
		} else {
			next := domain.JobStatus(pred.Status)
			if err := job.Transition(next); err != nil {
				return nil, err
			}
			if next.Terminal() {
				p.logger.Info().
					Str("job_id", job.ID).
					Str("status", pred.Status).
					Int("attempts", attempt).
					Msg("job reached terminal state")
				return pred, nil
			}
		}

		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return nil, err
			}
		}
	}

	return nil, domain.NewTimeout(fmt.Sprintf("job %s still %s after %d polls", job.ID, job.Status, p.maxAttempts))
}

func sleepTimer(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
