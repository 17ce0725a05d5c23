package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/explorex/nomad-connect/internal/logger"
)

// Store is the counter backend for a limiter. The in-memory map store
// is correct for a single process; the Redis store is the drop-in for
// multi-instance deployments.
type Store interface {
	// Incr bumps the counter for key inside the current fixed window,
	// creating a fresh bucket when none exists or the window elapsed.
	// It returns the post-increment count and the bucket's reset time.
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Config describes one limiter family (global API, auth, ...).
type Config struct {
	Window  time.Duration
	Max     int
	KeyFunc func(r *http.Request) string
	Message string
}

// Limiter is a fixed-window request throttle over a pluggable Store.
type Limiter struct {
	store Store
	cfg   Config
}

func New(store Store, cfg Config) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientKey
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests, please try again later"
	}
	return &Limiter{store: store, cfg: cfg}
}

// Middleware rejects requests over the window maximum with 429 and a
// Retry-After hint, and stamps X-RateLimit-* headers on every response.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, resetAt, err := l.store.Incr(r.Context(), l.cfg.KeyFunc(r), l.cfg.Window)
		if err != nil {
			// Fail open: throttling is an abuse control, not a
			// correctness requirement.
			logger.Warn("rate limit store unavailable", "err", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.cfg.Max - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > l.cfg.Max {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": l.cfg.Message})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientKey is the default key generator: the first IP in the
// X-Forwarded-For chain, else the remote address host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
