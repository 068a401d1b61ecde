package service

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/dto"
	"github.com/aryaraj132/yt-downloader/api/kafka"
	"github.com/aryaraj132/yt-downloader/api/models"
	"github.com/aryaraj132/yt-downloader/api/ratelimit"
	"github.com/aryaraj132/yt-downloader/api/repository"
	"github.com/aryaraj132/yt-downloader/api/validation"
)

var (
	// ErrQueueUnavailable means the enqueue step failed after the job record
	// was written; the record is flipped to failed so pollers get a
	// deterministic answer instead of a dangling pending job.
	ErrQueueUnavailable = errors.New("job queue unavailable")

	// ErrForbidden is returned when a caller asks about a job owned by
	// someone else.
	ErrForbidden = errors.New("unauthorized access to job")
)

// QuotaError carries the admission controller's denial verbatim.
type QuotaError struct {
	Decision ratelimit.Decision
}

func (e *QuotaError) Error() string {
	return "rate limit exceeded"
}

// Caller identifies who is creating or inspecting a job. Unauthenticated
// callers carry a fingerprint-derived ClientID instead of an owner.
type Caller struct {
	Owner         string
	Authenticated bool
	ClientID      string
}

type admitter interface {
	CheckAndConsume(ctx context.Context, clientID string) (ratelimit.Decision, error)
}

type progressStore interface {
	Init(ctx context.Context, jobID string) error
	Get(ctx context.Context, jobID string) (*models.ProgressEntry, error)
}

type JobService struct {
	repo      repository.JobRepository
	progress  progressStore
	producer  kafka.Producer
	limiter   admitter
	validator *validation.Validator
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewJobService(
	repo repository.JobRepository,
	progress progressStore,
	producer kafka.Producer,
	limiter admitter,
	validator *validation.Validator,
	retention time.Duration,
	logger *zap.Logger,
) *JobService {
	return &JobService{
		repo:      repo,
		progress:  progress,
		producer:  producer,
		limiter:   limiter,
		validator: validator,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateJob validates, admits, persists and enqueues one job. Validation runs
// before admission so a malformed request never consumes quota; admission
// runs before the insert so a denied request never creates a record.
func (s *JobService) CreateJob(ctx context.Context, caller Caller, kind models.JobKind, descriptor models.Descriptor) (*dto.JobResponse, error) {
	tier := validation.TierGuest
	if caller.Authenticated {
		tier = validation.TierAuthenticated
	}
	if err := s.validator.ValidateDescriptor(kind, descriptor, tier); err != nil {
		return nil, err
	}

	var quota *dto.Quota
	if !caller.Authenticated {
		decision, err := s.limiter.CheckAndConsume(ctx, caller.ClientID)
		if err != nil || !decision.Allowed {
			// Store errors deny as well: admission fails closed.
			return nil, &QuotaError{Decision: decision}
		}
		quota = quotaDTO(decision)
	}

	// Public-tier callers carry attribution to an owner without elevated
	// trust; callers with no token at all fall back to the guest sentinel.
	owner := caller.Owner
	if owner == "" {
		owner = models.GuestOwner
	}

	job := &models.Job{
		Owner:      owner,
		Kind:       kind,
		Status:     models.StatusPending,
		Descriptor: descriptor,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(err, "create job record")
	}

	// The progress entry is advisory; a failed seed only costs the client a
	// synthesized phase until the worker writes its first update.
	if err := s.progress.Init(ctx, job.ID); err != nil {
		s.logger.Warn("Failed to seed progress entry",
			zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Job created",
		zap.String("job_id", job.ID),
		zap.String("kind", string(kind)),
		zap.String("owner", owner),
	)

	resp := s.toResponse(job, &models.ProgressEntry{Phase: models.PhaseQueued})
	resp.Quota = quota
	return resp, nil
}

// RetryJob re-runs a failed job. The failed→pending reset is a guarded write,
// so a job that is pending, processing or terminal-successful is rejected
// without any state change.
func (s *JobService) RetryJob(ctx context.Context, caller Caller, jobID string) (*dto.JobResponse, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, job); err != nil {
		return nil, err
	}

	if err := s.repo.ResetForRetry(ctx, jobID); err != nil {
		return nil, err
	}
	job.Status = models.StatusPending
	job.ErrorMessage = ""
	job.ExpiresAt = nil

	if err := s.progress.Init(ctx, job.ID); err != nil {
		s.logger.Warn("Failed to seed progress entry",
			zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Job requeued", zap.String("job_id", job.ID))
	return s.toResponse(job, &models.ProgressEntry{Phase: models.PhaseQueued}), nil
}

// JobStatus merges the durable record with the ephemeral progress entry.
// While the record is non-terminal the progress entry (if any) is the source
// of truth for phase and telemetry; once terminal the record alone answers,
// so an expired or stale entry can never drag a finished job back to
// "in progress".
func (s *JobService) JobStatus(ctx context.Context, caller Caller, jobID string) (*dto.JobResponse, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, job); err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return s.toResponse(job, nil), nil
	}

	entry, err := s.progress.Get(ctx, jobID)
	if err != nil {
		s.logger.Warn("Progress store read failed",
			zap.String("job_id", jobID), zap.Error(err))
		entry = nil
	}
	if entry == nil {
		// Not yet picked up by a worker.
		entry = &models.ProgressEntry{Phase: models.PhaseQueued}
	}
	return s.toResponse(job, entry), nil
}

func (s *JobService) enqueue(ctx context.Context, job *models.Job) error {
	msg := &kafka.JobMessage{
		JobID:      job.ID,
		Kind:       job.Kind,
		Owner:      job.Owner,
		Descriptor: job.Descriptor,
	}
	err := s.producer.EnqueueJob(ctx, msg)
	if err == nil {
		return nil
	}

	s.logger.Error("Enqueue failed, failing job record",
		zap.String("job_id", job.ID), zap.Error(err))

	expiresAt := s.now().UTC().Add(s.retention)
	if markErr := s.repo.MarkFailed(ctx, job.ID, ErrQueueUnavailable.Error(), expiresAt); markErr != nil {
		s.logger.Error("Failed to mark job failed after enqueue error",
			zap.String("job_id", job.ID), zap.Error(markErr))
	}
	return pkgerrors.Wrap(ErrQueueUnavailable, err.Error())
}

// authorize enforces owner scoping. Guest jobs have unguessable ids and no
// owner, so knowing the id is the capability.
func (s *JobService) authorize(caller Caller, job *models.Job) error {
	if job.Owner == models.GuestOwner {
		return nil
	}
	if !caller.Authenticated || caller.Owner != job.Owner {
		return ErrForbidden
	}
	return nil
}

func (s *JobService) toResponse(job *models.Job, entry *models.ProgressEntry) *dto.JobResponse {
	resp := &dto.JobResponse{
		ID:        job.ID,
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}

	switch job.Status {
	case models.StatusCompleted:
		resp.ResultKey = job.ResultKey
	case models.StatusFailed:
		resp.ErrorMessage = job.ErrorMessage
	}

	if !job.Status.IsTerminal() && entry != nil {
		resp.Progress = &dto.ProgressResponse{
			Phase:            string(entry.Phase),
			DownloadProgress: entry.DownloadProgress,
			EncodingProgress: entry.EncodingProgress,
			Speed:            entry.Speed,
			ETA:              entry.ETA,
		}
	}
	return resp
}

func quotaDTO(d ratelimit.Decision) *dto.Quota {
	return &dto.Quota{
		Remaining: d.Remaining,
		Limit:     d.Limit,
		ResetAt:   d.ResetAt.UTC().Format(time.RFC3339),
	}
}
