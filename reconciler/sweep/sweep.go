package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/reconciler/pool"
	"github.com/aryaraj132/yt-downloader/reconciler/repository"
)

type artifactRemover interface {
	Remove(ctx context.Context, key string) error
}

type progressDeleter interface {
	Delete(ctx context.Context, jobID string) error
}

// Sweeper is the external reconciliation collaborator the orchestrator
// relies on: it forces timed-out processing jobs to failed and retires
// terminal jobs past their retention window, deleting their artifacts.
type Sweeper struct {
	repo      repository.Repository
	artifacts artifactRemover
	progress  progressDeleter
	logger    *zap.Logger

	threshold time.Duration
	retention time.Duration
	workers   int
	batch     int
}

func New(
	repo repository.Repository,
	artifacts artifactRemover,
	progress progressDeleter,
	threshold, retention time.Duration,
	workers, batch int,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		repo:      repo,
		artifacts: artifacts,
		progress:  progress,
		logger:    logger,
		threshold: threshold,
		retention: retention,
		workers:   workers,
		batch:     batch,
	}
}

// Run performs one full pass. Each pass is independent, so a failed pass is
// simply retried at the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.failStuck(ctx)
	s.expireRetained(ctx)
}

func (s *Sweeper) failStuck(ctx context.Context) {
	ids, err := s.repo.FailStuckProcessing(ctx, s.threshold, s.retention, s.batch)
	if err != nil {
		s.logger.Error("Stuck-job sweep failed", zap.Error(err))
		return
	}
	for _, id := range ids {
		s.logger.Warn("Forced stuck job to failed",
			zap.String("job_id", id), zap.Duration("threshold", s.threshold))
	}
}

func (s *Sweeper) expireRetained(ctx context.Context) {
	jobs, err := s.repo.ListExpiredRetained(ctx, s.batch)
	if err != nil {
		s.logger.Error("Retention sweep failed", zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	p := pool.New(s.workers)
	for _, job := range jobs {
		job := job
		p.Submit(ctx, func(ctx context.Context) {
			s.expireOne(ctx, job)
		})
	}
	p.Wait()
}

func (s *Sweeper) expireOne(ctx context.Context, job repository.RetainedJob) {
	// Artifact first: if the delete fails the job stays retained and the
	// next pass retries, rather than orphaning the file.
	if job.ResultKey != "" {
		if err := s.artifacts.Remove(ctx, job.ResultKey); err != nil {
			s.logger.Error("Artifact delete failed, keeping job for next pass",
				zap.String("job_id", job.ID), zap.Error(err))
			return
		}
	}

	if err := s.repo.MarkExpired(ctx, job.ID); err != nil {
		s.logger.Error("Failed to expire job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	if err := s.progress.Delete(ctx, job.ID); err != nil {
		s.logger.Warn("Failed to drop progress entry", zap.String("job_id", job.ID), zap.Error(err))
	}

	s.logger.Info("Job expired", zap.String("job_id", job.ID))
}
