package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/explorex/nomad-connect/internal/logger"
	"github.com/explorex/nomad-connect/internal/token"
)

type contextKey string

const sessionUserKey contextKey = "sessionUserID"

// requireSession extracts and verifies the bearer session token,
// stashing the verified user ID in the request context. Handlers then
// compare it against the identity each route declares. Responses never
// say which part of the token failed.
func requireSession(codec token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			scheme, raw, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") {
				unauthorized(w)
				return
			}

			userID, valid := codec.Verify(raw)
			if !valid {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionUserKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionUserID returns the verified user ID placed by requireSession.
func sessionUserID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(sessionUserKey).(uint64)
	return id, ok
}

// authorizeIdentity enforces the guard convention: the verified session
// user must equal the identity the route declared. Writes 401 and
// returns false on mismatch.
func authorizeIdentity(w http.ResponseWriter, r *http.Request, declaredID uint64) bool {
	sessionID, ok := sessionUserID(r.Context())
	if !ok || sessionID != declaredID {
		unauthorized(w)
		return false
	}
	return true
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
