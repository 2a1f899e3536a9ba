package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"adforge/internal/adapter/repo"
	"adforge/internal/cache"
	"adforge/internal/cleanup"
	httpapi "adforge/internal/http"
	"adforge/internal/http/handlers"
	"adforge/internal/infra"
	"adforge/internal/render"
	"adforge/internal/storage"
	"adforge/internal/timeline"
)

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
		logger.Fatal().Err(err).Msg("failed to connect database")
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
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	store := storage.NewLocalObjectStore(files, cfg.StorageBaseURL, cfg.PresignSecret)

	engine, err := render.New(render.Options{
		FFmpegBin:        cfg.FFmpegBin,
		PreviewWidth:     cfg.PreviewWidth,
		PreviewHeight:    cfg.PreviewHeight,
		PreviewFrameRate: cfg.PreviewFrameRate,
		Files:            files,
		Store:            store,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure render engine")
	}

	lookup := repo.NewProjectLookup(pool)
	cleaner, err := cleanup.NewManager(cleanup.ManagerOptions{
		Files:          files,
		Lookup:         lookup,
		MaxAge:         cfg.TempMaxAge,
		UploadMaxAge:   cfg.UploadMaxAge,
		ThresholdBytes: cfg.DiskThresholdBytes,
		Budget:         cfg.CleanupBudget,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure cleanup")
	}

	app := &handlers.App{
		Jobs:          repo.NewJobRepository(pool),
		Clips:         repo.NewClipRepository(pool),
		Overlays:      repo.NewOverlayRepository(pool),
		Artifacts:     repo.NewArtifactRepository(pool),
		Store:         store,
		Cache:         cache.New(cfg.CacheMaxBytes, cfg.CacheMaxEntryBytes, logger),
		Timelines:     timeline.NewManager(),
		Engine:        engine,
		Cleanup:       cleaner,
		CleanupSecret: cfg.CleanupSecret,
		Logger:        logger,
	}

	router := httpapi.NewRouter(app, logger, cfg.AllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)
	sweeper := cleanup.NewSweeper(cleaner, cfg.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sweeper.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
