package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/aryaraj132/yt-downloader/api/models"
	"github.com/aryaraj132/yt-downloader/api/repository"
	"github.com/aryaraj132/yt-downloader/api/token"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[string]*models.User),
	}
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrUserExists
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	user, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// mockSessionRepo backs both the auth service and the token authority.
type mockSessionRepo struct {
	sessions     map[string]*models.Session
	publicTokens map[string]string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{
		sessions:     make(map[string]*models.Session),
		publicTokens: make(map[string]string),
	}
}

func (m *mockSessionRepo) CreateSession(ctx context.Context, s *models.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) FindLiveSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID || !s.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionRepo) DeleteSession(ctx context.Context, sessionID string) error {
	if _, ok := m.sessions[sessionID]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *mockSessionRepo) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) GetPublicToken(ctx context.Context, userID string) (string, error) {
	return m.publicTokens[userID], nil
}

func (m *mockSessionRepo) SavePublicToken(ctx context.Context, userID, tok string) (string, error) {
	if existing, ok := m.publicTokens[userID]; ok {
		return existing, nil
	}
	m.publicTokens[userID] = tok
	return tok, nil
}

type mockTokenCache struct {
	entries map[string]*models.Session
}

func newMockTokenCache() *mockTokenCache {
	return &mockTokenCache{entries: make(map[string]*models.Session)}
}

func (m *mockTokenCache) Get(ctx context.Context, hash string) (*models.Session, error) {
	return m.entries[hash], nil
}

func (m *mockTokenCache) Put(ctx context.Context, hash string, s *models.Session) error {
	m.entries[hash] = s
	return nil
}

func (m *mockTokenCache) Delete(ctx context.Context, hash string) error {
	delete(m.entries, hash)
	return nil
}

type authFixture struct {
	svc       *AuthService
	users     *mockUserRepo
	sessions  *mockSessionRepo
	cache     *mockTokenCache
	authority *token.Authority
}

func newAuthFixture(t *testing.T) *authFixture {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	cache := newMockTokenCache()
	logger := zaptest.NewLogger(t)

	authority := token.NewAuthority(token.Config{
		PublicSecret:    []byte("public-test-secret"),
		PrivateSecret:   []byte("private-test-secret"),
		PrivateLifetime: time.Hour,
	}, sessions, cache, logger)

	return &authFixture{
		svc:       NewAuthService(users, sessions, authority, logger),
		users:     users,
		sessions:  sessions,
		cache:     cache,
		authority: authority,
	}
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "  Alice@Example.COM ", "correct-horse")
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %s", user.Email)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")) != nil {
		t.Error("Stored hash does not match the password")
	}

	if _, err := f.svc.Register(ctx, "alice@example.com", "another-pass"); !errors.Is(err, repository.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
	if _, err := f.svc.Register(ctx, "not-an-email", "correct-horse"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}
	if _, err := f.svc.Register(ctx, "bob@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	resp, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("Expected a token")
	}

	identity, err := f.authority.Verify(ctx, resp.Token, token.KindPrivate)
	if err != nil {
		t.Fatalf("Issued token failed verification: %v", err)
	}
	if identity.Owner != user.ID {
		t.Errorf("Expected token owner %s, got %s", user.ID, identity.Owner)
	}

	if _, err := f.svc.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for bad password, got %v", err)
	}
	// Unknown account and bad password are indistinguishable.
	if _, err := f.svc.Login(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogout_RevokesSessionAndCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.svc.Register(ctx, "alice@example.com", "correct-horse")
	resp, err := f.svc.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Failed to login: %v", err)
	}

	identity, err := f.authority.Verify(ctx, resp.Token, token.KindPrivate)
	if err != nil {
		t.Fatalf("Failed to verify: %v", err)
	}

	if err := f.svc.Logout(ctx, resp.Token, identity); err != nil {
		t.Fatalf("Failed to logout: %v", err)
	}

	if len(f.sessions.sessions) != 0 {
		t.Error("Expected durable session to be deleted")
	}
	if _, err := f.authority.Verify(ctx, resp.Token, token.KindPrivate); !errors.Is(err, token.ErrUnauthorized) {
		t.Errorf("Expected token to be rejected after logout, got %v", err)
	}

	// Logging out twice is not an error.
	if err := f.svc.Logout(ctx, resp.Token, identity); err != nil {
		t.Errorf("Expected repeated logout to succeed, got %v", err)
	}
}

func TestChangePassword_RevokesAllSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _ := f.svc.Register(ctx, "alice@example.com", "correct-horse")
	f.svc.Login(ctx, "alice@example.com", "correct-horse")
	f.svc.Login(ctx, "alice@example.com", "correct-horse")
	if len(f.sessions.sessions) != 2 {
		t.Fatalf("Expected two live sessions, got %d", len(f.sessions.sessions))
	}

	if err := f.svc.ChangePassword(ctx, user.ID, "wrong-old", "new-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong old password, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, user.ID, "correct-horse", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}

	if err := f.svc.ChangePassword(ctx, user.ID, "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("Failed to change password: %v", err)
	}

	if len(f.sessions.sessions) != 0 {
		t.Error("Expected all sessions to be revoked")
	}
	if _, err := f.svc.Login(ctx, "alice@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("Expected old password to stop working")
	}
	if _, err := f.svc.Login(ctx, "alice@example.com", "new-password-1"); err != nil {
		t.Errorf("Expected new password to work, got %v", err)
	}
}

func TestPublicToken_StablePerOwner(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, _ := f.svc.Register(ctx, "alice@example.com", "correct-horse")

	first, err := f.svc.PublicToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to issue public token: %v", err)
	}
	second, err := f.svc.PublicToken(ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to reissue public token: %v", err)
	}
	if first != second {
		t.Error("Expected the same public token on every call")
	}

	identity, err := f.authority.Verify(ctx, first, token.KindPublic)
	if err != nil {
		t.Fatalf("Public token failed verification: %v", err)
	}
	if identity.Owner != user.ID {
		t.Errorf("Expected owner %s, got %s", user.ID, identity.Owner)
	}
}
