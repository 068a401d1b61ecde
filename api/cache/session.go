package cache

import (
	"context"
	"time"

	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/api/models"
	"github.com/aryaraj132/yt-downloader/api/token"
)

const sessionKeyPrefix = "session:token:"

// SessionCache is the advisory mirror of the durable session table, keyed by
// token hash. Entries expire at the configured cache TTL or the session's own
// expiry, whichever comes first.
type SessionCache struct {
	cache *database.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionCache(cache *database.Cache, ttl time.Duration) *SessionCache {
	return &SessionCache{cache: cache, ttl: ttl, now: time.Now}
}

func (c *SessionCache) Get(ctx context.Context, tokenHash string) (*models.Session, error) {
	raw, err := c.cache.Get(ctx, sessionKeyPrefix+tokenHash)
	if err != nil {
		if database.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return token.DecodeSession([]byte(raw))
}

func (c *SessionCache) Put(ctx context.Context, tokenHash string, s *models.Session) error {
	ttl := c.ttl
	if remaining := s.ExpiresAt.Sub(c.now().UTC()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return nil
	}

	data, err := token.EncodeSession(s)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, sessionKeyPrefix+tokenHash, data, ttl)
}

func (c *SessionCache) Delete(ctx context.Context, tokenHash string) error {
	return c.cache.Del(ctx, sessionKeyPrefix+tokenHash)
}
