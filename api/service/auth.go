package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryaraj132/yt-downloader/api/dto"
	"github.com/aryaraj132/yt-downloader/api/models"
	"github.com/aryaraj132/yt-downloader/api/repository"
	"github.com/aryaraj132/yt-downloader/api/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	authority *token.Authority
	logger    *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	authority *token.Authority,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		authority: authority,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues a private token backed by a fresh
// durable session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	signed, session, err := s.authority.IssuePrivate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session created",
		zap.String("user_id", user.ID), zap.String("session_id", session.ID))

	return &dto.LoginResponse{
		Token:     signed,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

// Logout deletes the durable session (the authoritative revocation) and
// best-effort evicts the cache entry. Until the cache entry lapses the token
// may still pass the fast path; that staleness window is bounded by the
// cache TTL.
func (s *AuthService) Logout(ctx context.Context, rawToken string, identity *token.Identity) error {
	if err := s.sessions.DeleteSession(ctx, identity.SessionID); err != nil &&
		!errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	s.authority.RevokeCached(ctx, rawToken)

	s.logger.Info("Session revoked",
		zap.String("user_id", identity.Owner), zap.String("session_id", identity.SessionID))
	return nil
}

// ChangePassword rehashes the password and revokes every session for the
// owner, forcing all devices to log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	revoked, err := s.sessions.DeleteUserSessions(ctx, userID)
	if err != nil {
		return err
	}

	s.logger.Info("Password changed, sessions revoked",
		zap.String("user_id", userID), zap.Int64("sessions", revoked))
	return nil
}

// PublicToken returns the owner's attribution token, minting one on first
// call.
func (s *AuthService) PublicToken(ctx context.Context, userID string) (string, error) {
	return s.authority.IssuePublic(ctx, userID)
}
