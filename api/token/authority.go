package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/models"
)

type Kind string

const (
	KindPublic  Kind = "public"
	KindPrivate Kind = "private"
)

// ErrUnauthorized is the uniform rejection for any verification failure:
// missing token, bad signature, wrong kind, or no live session. Callers never
// learn which layer rejected them.
var ErrUnauthorized = errors.New("invalid or expired token")

type claims struct {
	Kind      Kind   `json:"kind"`
	Owner     string `json:"owner"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller extracted from a token.
type Identity struct {
	Owner     string
	Kind      Kind
	SessionID string
}

// SessionStore is the durable session table. Deleting a row there is the
// authoritative revocation.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindLiveSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
	GetPublicToken(ctx context.Context, userID string) (string, error)
	SavePublicToken(ctx context.Context, userID, token string) (string, error)
}

// SessionCache is the advisory fast path keyed by a hash of the token. A
// stale entry may accept a revoked token until its TTL lapses; that window is
// bounded by the configured cache TTL.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*models.Session, error)
	Put(ctx context.Context, tokenHash string, s *models.Session) error
	Delete(ctx context.Context, tokenHash string) error
}

type Config struct {
	PublicSecret    []byte
	PrivateSecret   []byte
	PrivateLifetime time.Duration
}

// Authority issues and verifies both token kinds. The two kinds are signed
// with independent secrets, so compromise of one cannot forge the other.
type Authority struct {
	cfg    Config
	store  SessionStore
	cache  SessionCache
	logger *zap.Logger
	now    func() time.Time
}

func NewAuthority(cfg Config, store SessionStore, cache SessionCache, logger *zap.Logger) *Authority {
	return &Authority{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// IssuePublic returns the owner's attribution token, minting and persisting
// one on first call. Public tokens never expire and carry no session.
func (a *Authority) IssuePublic(ctx context.Context, owner string) (string, error) {
	existing, err := a.store.GetPublicToken(ctx, owner)
	if err == nil && existing != "" {
		return existing, nil
	}

	c := claims{
		Kind:  KindPublic,
		Owner: owner,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(a.now().UTC()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.cfg.PublicSecret)
	if err != nil {
		return "", err
	}

	// SavePublicToken is insert-if-absent; a concurrent issuer wins and we
	// return whichever token landed first.
	return a.store.SavePublicToken(ctx, owner, signed)
}

// IssuePrivate creates a durable session and signs a time-bound token tied to
// it. The session is mirrored into the cache best-effort.
func (a *Authority) IssuePrivate(ctx context.Context, owner string) (string, *models.Session, error) {
	now := a.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    owner,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.PrivateLifetime),
	}
	if err := a.store.CreateSession(ctx, session); err != nil {
		return "", nil, err
	}

	c := claims{
		Kind:      KindPrivate,
		Owner:     owner,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.cfg.PrivateSecret)
	if err != nil {
		return "", nil, err
	}

	if err := a.cache.Put(ctx, HashToken(signed), session); err != nil {
		a.logger.Warn("Failed to prime session cache", zap.Error(err))
	}

	return signed, session, nil
}

// Verify decodes a token and resolves trust for the expected kind. For
// private tokens a structurally valid signature is not enough: a live session
// must be confirmed by the cache or, on cache miss, by the durable table.
func (a *Authority) Verify(ctx context.Context, raw string, expected Kind) (*Identity, error) {
	secret := a.cfg.PublicSecret
	if expected == KindPrivate {
		secret = a.cfg.PrivateSecret
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return secret, nil
	})
	if err != nil || c.Kind != expected || c.Owner == "" {
		return nil, ErrUnauthorized
	}

	if expected == KindPublic {
		return &Identity{Owner: c.Owner, Kind: KindPublic}, nil
	}

	if c.SessionID == "" {
		return nil, ErrUnauthorized
	}
	if err := a.resolveSession(ctx, raw, &c); err != nil {
		return nil, ErrUnauthorized
	}

	return &Identity{Owner: c.Owner, Kind: KindPrivate, SessionID: c.SessionID}, nil
}

func (a *Authority) resolveSession(ctx context.Context, raw string, c *claims) error {
	hash := HashToken(raw)

	if cached, err := a.cache.Get(ctx, hash); err == nil && cached != nil {
		if cached.ID == c.SessionID && cached.UserID == c.Owner && cached.ExpiresAt.After(a.now().UTC()) {
			return nil
		}
	}

	session, err := a.store.FindLiveSession(ctx, c.SessionID, c.Owner)
	if err != nil || session == nil {
		return ErrUnauthorized
	}

	if err := a.cache.Put(ctx, hash, session); err != nil {
		a.logger.Warn("Failed to repopulate session cache", zap.Error(err))
	}
	return nil
}

// RevokeCached drops the cache entry for a token after its durable session
// has been deleted. Best-effort: a miss or store error only widens the
// documented staleness window.
func (a *Authority) RevokeCached(ctx context.Context, raw string) {
	if err := a.cache.Delete(ctx, HashToken(raw)); err != nil {
		a.logger.Warn("Failed to evict session cache entry", zap.Error(err))
	}
}

// HashToken keys the session cache. Tokens are never stored verbatim in the
// ephemeral store.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// cachedSession is the wire form of a session cache entry.
type cachedSession struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EncodeSession and DecodeSession are shared by the Redis-backed cache.
func EncodeSession(s *models.Session) ([]byte, error) {
	return json.Marshal(cachedSession{ID: s.ID, UserID: s.UserID, ExpiresAt: s.ExpiresAt})
}

func DecodeSession(data []byte) (*models.Session, error) {
	var c cachedSession
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &models.Session{ID: c.ID, UserID: c.UserID, ExpiresAt: c.ExpiresAt}, nil
}
