package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/api/models"
)

type PostgresJobRepo struct {
	db *database.DB
}

func NewPostgresJobRepo(db *database.DB) JobRepository {
	return &PostgresJobRepo{db: db}
}

func (r *PostgresJobRepo) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	descriptor, err := json.Marshal(job.Descriptor)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, owner_id, kind, status, descriptor, error_message)
		VALUES ($1, $2, $3, $4, $5, '')
		RETURNING created_at, updated_at
	`
	return r.db.Pool.QueryRow(ctx, query,
		job.ID,
		job.Owner,
		job.Kind,
		models.StatusPending,
		descriptor,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *PostgresJobRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, owner_id, kind, status, descriptor, result_key, error_message,
		       created_at, updated_at, expires_at
		FROM jobs
		WHERE id = $1
	`

	var (
		job        models.Job
		descriptor []byte
	)
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Owner,
		&job.Kind,
		&job.Status,
		&descriptor,
		&job.ResultKey,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(descriptor, &job.Descriptor); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *PostgresJobRepo) MarkProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	return r.guarded(ctx, id, query, models.StatusProcessing, id, models.StatusPending)
}

func (r *PostgresJobRepo) MarkCompleted(ctx context.Context, id, resultKey string, expiresAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1, result_key = $2, error_message = '', expires_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	return r.guarded(ctx, id, query, models.StatusCompleted, resultKey, expiresAt, id, models.StatusProcessing)
}

func (r *PostgresJobRepo) MarkFailed(ctx context.Context, id, errorMessage string, expiresAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1, result_key = '', error_message = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $4 AND status IN ($5, $6)
	`
	return r.guarded(ctx, id, query,
		models.StatusFailed, errorMessage, expiresAt, id, models.StatusPending, models.StatusProcessing)
}

func (r *PostgresJobRepo) ResetForRetry(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = '', expires_at = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	return r.guarded(ctx, id, query, models.StatusPending, id, models.StatusFailed)
}

// guarded runs a conditional status update and distinguishes "no such job"
// from "job exists but the precondition failed".
func (r *PostgresJobRepo) guarded(ctx context.Context, id, query string, args ...interface{}) error {
	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrJobNotFound
	}
	return ErrInvalidTransition
}
