package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/cache"
	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/reconciler/config"
	"github.com/aryaraj132/yt-downloader/reconciler/repository"
	"github.com/aryaraj132/yt-downloader/reconciler/storage"
	"github.com/aryaraj132/yt-downloader/reconciler/sweep"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Postgres connection failed", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := database.ConnectCache(cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisCache.Close()

	artifacts, err := storage.NewArtifactStore(ctx, cfg.S3Bucket, cfg.S3Endpoint, cfg.S3Region)
	if err != nil {
		logger.Fatal("Artifact store init failed", zap.Error(err))
	}

	sweeper := sweep.New(
		repository.NewPostgresRepo(db.Pool),
		artifacts,
		cache.NewProgressStore(redisCache, 0),
		cfg.StuckThreshold,
		cfg.RetentionWindow,
		cfg.SweepWorkers,
		cfg.SweepBatch,
		logger,
	)

	logger.Info("Reconciler started",
		zap.Duration("interval", cfg.SweepInterval),
		zap.Duration("stuck_threshold", cfg.StuckThreshold),
	)

	tick := time.NewTicker(cfg.SweepInterval)
	defer tick.Stop()

	for {
		sweeper.Run(ctx)

		select {
		case <-tick.C:
		case <-ctx.Done():
			logger.Info("Reconciler stopping")
			return
		}
	}
}
