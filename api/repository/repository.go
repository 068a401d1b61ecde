package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aryaraj132/yt-downloader/api/models"
)

var (
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when a guarded status update finds the
	// job in any state other than the required precondition.
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrSessionNotFound   = errors.New("session not found")
)

type JobRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)

	// MarkProcessing is the guarded pending→processing transition used by
	// consumers; it fails with ErrInvalidTransition if the job was already
	// claimed, preventing double-dispatch.
	MarkProcessing(ctx context.Context, id string) error

	// MarkCompleted and MarkFailed are terminal transitions; both stamp
	// expires_at so the retention sweep can find the record later.
	MarkCompleted(ctx context.Context, id, resultKey string, expiresAt time.Time) error
	MarkFailed(ctx context.Context, id, errorMessage string, expiresAt time.Time) error

	// ResetForRetry is the guarded failed→pending transition. Any other
	// starting status is ErrInvalidTransition, never a silent no-op.
	ResetForRetry(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionRepository is the durable half of the dual-store trust model; it
// also backs public-token idempotent issuance.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindLiveSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
	GetPublicToken(ctx context.Context, userID string) (string, error)
	SavePublicToken(ctx context.Context, userID, token string) (string, error)
}
