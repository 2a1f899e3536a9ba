package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"adforge/internal/adapter/repo"
	"adforge/internal/domain"
	"adforge/internal/infra"
	"adforge/internal/orchestrator"
	"adforge/internal/providers/generation"
	"adforge/internal/storage"
)

const claimInterval = 2 * time.Second

type jobWorker struct {
	ctx    context.Context
	jobs   domain.JobRepository
	orch   *orchestrator.Orchestrator
	logger infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	files, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}
	store := storage.NewLocalObjectStore(files, cfg.StorageBaseURL, cfg.PresignSecret)

	if cfg.ProviderAPIToken == "" {
		logger.Warn().Msg("worker: provider api token missing, job creation will fail")
	}
	provider := generation.NewClient(generation.Options{
		BaseURL:  cfg.ProviderBaseURL,
		APIToken: cfg.ProviderAPIToken,
		Logger:   logger,
	})

	jobs := repo.NewJobRepository(pool)
	poller := orchestrator.NewPoller(provider, cfg.PollInterval, cfg.PollMaxAttempts, logger)
	orch := orchestrator.New(provider, poller, store, repo.NewArtifactRepository(pool), jobs, logger)

	worker := &jobWorker{
		ctx:    ctx,
		jobs:   jobs,
		orch:   orch,
		logger: logger,
	}
	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimNext(w.ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			if !sleepCtx(w.ctx, claimInterval) {
				return w.ctx.Err()
			}
			continue
		}

		w.handleJob(job)
	}
}

func (w *jobWorker) handleJob(job *domain.Job) {
	w.logger.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("worker: picked job")
	_, err := w.orch.RunJob(w.ctx, job, nil, &orchestrator.Placement{
		ProjectID: job.ProjectID,
		Category:  domain.CategoryGenerated,
	})
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: job failed")
		return
	}
	w.logger.Info().Str("job_id", job.ID).Int("outputs", len(job.OutputURLs)).Msg("worker: job finished")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
