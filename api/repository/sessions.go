package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/api/models"
)

const uniqueViolation = "23505"

type PostgresAuthRepo struct {
	db *database.DB
}

func NewPostgresAuthRepo(db *database.DB) *PostgresAuthRepo {
	return &PostgresAuthRepo{db: db}
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *PostgresAuthRepo) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Pool.Exec(ctx, query, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

// FindLiveSession is the authoritative check behind private-token
// verification: the session must match id and owner and not be expired.
func (r *PostgresAuthRepo) FindLiveSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND user_id = $2 AND expires_at > NOW()
	`
	var s models.Session
	err := r.db.Pool.QueryRow(ctx, query, sessionID, userID).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresAuthRepo) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *PostgresAuthRepo) GetPublicToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT token FROM public_tokens WHERE user_id = $1`, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// SavePublicToken inserts the owner's token if none exists yet and returns
// whichever token is durably stored, making issuance idempotent under races.
func (r *PostgresAuthRepo) SavePublicToken(ctx context.Context, userID, token string) (string, error) {
	query := `
		INSERT INTO public_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Pool.Exec(ctx, query, userID, token); err != nil {
		return "", err
	}
	return r.GetPublicToken(ctx, userID)
}
