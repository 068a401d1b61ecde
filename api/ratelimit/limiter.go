package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/aryaraj132/yt-downloader/api/database"
	"github.com/aryaraj132/yt-downloader/api/dto"
)

// Guest counters live under their own prefix so the fingerprint key space can
// never collide with the owner id key space; switching identity therefore
// switches quota pools.
const keyPrefix = "ratelimit:guest:"

// ClientID derives the rate-limit identity for an unauthenticated caller from
// its network address plus the client-supplied signal bundle.
func ClientID(ip string, fp *dto.Fingerprint) string {
	composite := ip
	if fp != nil {
		composite = fmt.Sprintf("%s:%s:%s:%d:%s", ip, fp.UserAgent, fp.Screen, fp.Timezone, fp.Language)
	}
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

// CounterStore is the slice of the ephemeral store the limiter needs. The
// increment must be atomic across concurrent callers.
type CounterStore interface {
	Get(ctx context.Context, key string) (string, error)
	Incr(ctx context.Context, key string) (int64, error)
	ExpireNX(ctx context.Context, key string, ttl time.Duration) error
}

// Decision is the admission answer. On approval it is attached to the create
// response; on denial it is returned verbatim with the error.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

type Limiter struct {
	store  CounterStore
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

func NewLimiter(store CounterStore, limit int, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAndConsume admits or denies one job creation for the given client.
// A denied call never mutates the counter, so rejected attempts cost nothing.
// If the store is unreachable the limiter fails closed.
func (l *Limiter) CheckAndConsume(ctx context.Context, clientID string) (Decision, error) {
	key := keyPrefix + clientID
	resetAt := l.nextMidnightUTC()

	current, err := l.currentCount(ctx, key)
	if err != nil {
		l.logger.Error("Fingerprint store unreachable, denying admission", zap.Error(err))
		return Decision{Allowed: false, Limit: l.limit, ResetAt: resetAt}, err
	}

	if current >= int64(l.limit) {
		return Decision{Allowed: false, Remaining: 0, Limit: l.limit, ResetAt: resetAt}, nil
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		l.logger.Error("Fingerprint store unreachable, denying admission", zap.Error(err))
		return Decision{Allowed: false, Limit: l.limit, ResetAt: resetAt}, err
	}

	// First write of the UTC day: pin the expiry to the next midnight reset.
	if count == 1 {
		if err := l.store.ExpireNX(ctx, key, l.untilMidnightUTC()); err != nil {
			l.logger.Warn("Failed to set counter expiry", zap.Error(err))
		}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		// Lost a race at the boundary; the counter already denies further reads.
		return Decision{Allowed: false, Remaining: 0, Limit: l.limit, ResetAt: resetAt}, nil
	}

	return Decision{Allowed: true, Remaining: remaining, Limit: l.limit, ResetAt: resetAt}, nil
}

func (l *Limiter) currentCount(ctx context.Context, key string) (int64, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if database.IsNil(err) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (l *Limiter) nextMidnightUTC() time.Time {
	now := l.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func (l *Limiter) untilMidnightUTC() time.Duration {
	return l.nextMidnightUTC().Sub(l.now().UTC())
}
