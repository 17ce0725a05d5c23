package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/config"
	"github.com/explorex/nomad-connect/internal/quota"
	"github.com/explorex/nomad-connect/internal/ratelimit"
	"github.com/explorex/nomad-connect/internal/service/account"
	"github.com/explorex/nomad-connect/internal/service/compat"
	"github.com/explorex/nomad-connect/internal/service/match"
	"github.com/explorex/nomad-connect/internal/service/radar"
	"github.com/explorex/nomad-connect/internal/token"
)

// Server is the HTTP front of the service: routing, throttling and the
// session guard around the domain services.
type Server struct {
	router *chi.Mux
	appCtx *app.AppContext
	codec  token.Codec

	accounts *account.Service
	radar    *radar.Service
	matches  *match.Service
	compat   *compat.Service
	ledger   *quota.Ledger
}

// NewServer wires routes, per-family rate limiters and middleware.
// limiterStore is shared by all limiter families but each family keys
// its own buckets independently via a prefix.
func NewServer(
	cfg *config.Config,
	appCtx *app.AppContext,
	codec token.Codec,
	accounts *account.Service,
	radarSvc *radar.Service,
	matchSvc *match.Service,
	compatSvc *compat.Service,
	ledger *quota.Ledger,
	newStore func(prefix string) ratelimit.Store,
) *Server {
	s := &Server{
		appCtx:   appCtx,
		codec:    codec,
		accounts: accounts,
		radar:    radarSvc,
		matches:  matchSvc,
		compat:   compatSvc,
		ledger:   ledger,
	}

	apiLimiter := ratelimit.New(newStore("rl:api:"), ratelimit.Config{
		Window: cfg.Limits.APIWindow, Max: cfg.Limits.APIMax,
	})
	authLimiter := ratelimit.New(newStore("rl:auth:"), ratelimit.Config{
		Window: cfg.Limits.AuthWindow, Max: cfg.Limits.AuthMax,
		Message: "Too many authentication attempts, please try again later",
	})
	resetLimiter := ratelimit.New(newStore("rl:reset:"), ratelimit.Config{
		Window: cfg.Limits.ResetWindow, Max: cfg.Limits.ResetMax,
		Message: "Too many password reset requests, please try again later",
	})
	feedbackLimiter := ratelimit.New(newStore("rl:feedback:"), ratelimit.Config{
		Window: cfg.Limits.FeedbackWindow, Max: cfg.Limits.FeedbackMax,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter.Middleware).Post("/signup", s.handleSignup)
			r.With(authLimiter.Middleware).Post("/login", s.handleLogin)
			r.With(resetLimiter.Middleware).Post("/forgot-password", s.handleForgotPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession(codec))

			r.Route("/radar", func(r chi.Router) {
				r.Post("/update-location", s.handleUpdateLocation)
				r.Post("/scan", s.handleScan)
				r.Post("/toggle-visibility", s.handleToggleVisibility)
				r.Post("/chat-request", s.handleCreateChatRequest)
				r.Get("/chat-requests/{userId}", s.handleListChatRequests)
				r.Post("/chat-request/{id}/respond", s.handleRespondChatRequest)
			})

			r.Post("/swipes", s.handleSwipe)
			r.Get("/matches/{userId}", s.handleListMatches)
			r.Post("/compatibility/check", s.handleCompatibilityCheck)
			r.Get("/quota/{userId}", s.handleQuotaStatus)
			r.With(feedbackLimiter.Middleware).Post("/feedback", s.handleFeedback)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.appCtx.RedisCache != nil {
		if err := s.appCtx.RedisCache.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
