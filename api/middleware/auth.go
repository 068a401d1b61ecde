package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/aryaraj132/yt-downloader/api/token"
)

const (
	identityKey contextKey = "identity"
	rawTokenKey contextKey = "raw_token"
)

type verifier interface {
	Verify(ctx context.Context, raw string, expected token.Kind) (*token.Identity, error)
}

// Identify resolves the bearer token, if any, into a caller identity. A
// private token is tried first (it grants everything a public one does);
// failing that the public secret is tried. Requests with no token, or with a
// token neither secret accepts, proceed anonymously — endpoints that need
// trust enforce it themselves.
func Identify(authority verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), rawTokenKey, raw)
			if id, err := authority.Verify(ctx, raw, token.KindPrivate); err == nil {
				ctx = context.WithValue(ctx, identityKey, id)
			} else if id, err := authority.Verify(ctx, raw, token.KindPublic); err == nil {
				ctx = context.WithValue(ctx, identityKey, id)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetIdentity returns the verified caller, or nil for anonymous requests.
func GetIdentity(ctx context.Context) *token.Identity {
	if id, ok := ctx.Value(identityKey).(*token.Identity); ok {
		return id
	}
	return nil
}

// GetRawToken returns the bearer token as presented, for cache eviction on
// logout.
func GetRawToken(ctx context.Context) string {
	if raw, ok := ctx.Value(rawTokenKey).(string); ok {
		return raw
	}
	return ""
}
