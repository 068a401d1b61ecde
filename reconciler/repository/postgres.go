package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aryaraj132/yt-downloader/api/models"
)

// RetainedJob is a terminal job whose retention window has lapsed.
type RetainedJob struct {
	ID        string
	ResultKey string
}

type Repository interface {
	FailStuckProcessing(ctx context.Context, threshold, retention time.Duration, limit int) ([]string, error)
	ListExpiredRetained(ctx context.Context, limit int) ([]RetainedJob, error)
	MarkExpired(ctx context.Context, id string) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// FailStuckProcessing forces jobs stuck in processing past the threshold to
// failed with a timeout error. The status guard in the UPDATE keeps this safe
// against a worker finishing concurrently.
func (r *PostgresRepo) FailStuckProcessing(ctx context.Context, threshold, retention time.Duration, limit int) ([]string, error) {
	query := `
		UPDATE jobs
		SET status = $1, error_message = 'processing timeout', expires_at = NOW() + $2, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = $3 AND updated_at < NOW() - $4
			ORDER BY updated_at ASC
			LIMIT $5
		) AND status = $3
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query,
		models.StatusFailed, retention, models.StatusProcessing, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepo) ListExpiredRetained(ctx context.Context, limit int) ([]RetainedJob, error) {
	query := `
		SELECT id, result_key FROM jobs
		WHERE status IN ($1, $2) AND expires_at IS NOT NULL AND expires_at <= NOW()
		ORDER BY expires_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, models.StatusCompleted, models.StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []RetainedJob
	for rows.Next() {
		var j RetainedJob
		if err := rows.Scan(&j.ID, &j.ResultKey); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkExpired is the terminal→expired transition; only completed and failed
// jobs are eligible.
func (r *PostgresRepo) MarkExpired(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1, result_key = '', updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
	`
	_, err := r.db.Exec(ctx, query, models.StatusExpired, id, models.StatusCompleted, models.StatusFailed)
	return err
}
