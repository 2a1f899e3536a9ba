package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper triggers scheduled cleanup on a fixed interval until its context
// is canceled.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(manager *Manager, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run blocks until ctx is canceled, firing one cleanup pass per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			sweep := s.manager.RunScheduledCleanup(ctx)
			if len(sweep.Errors) > 0 {
				s.logger.Warn().Strs("errors", sweep.Errors).Msg("cleanup pass had failures")
			}
		}
	}
}
