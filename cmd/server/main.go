package main

import (
	"context"
	"net/http"
	"time"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/auth"
	"github.com/explorex/nomad-connect/internal/cache"
	"github.com/explorex/nomad-connect/internal/config"
	"github.com/explorex/nomad-connect/internal/db"
	"github.com/explorex/nomad-connect/internal/httpapi"
	"github.com/explorex/nomad-connect/internal/llm"
	"github.com/explorex/nomad-connect/internal/logger"
	"github.com/explorex/nomad-connect/internal/quota"
	"github.com/explorex/nomad-connect/internal/ratelimit"
	"github.com/explorex/nomad-connect/internal/repository"
	"github.com/explorex/nomad-connect/internal/service/account"
	"github.com/explorex/nomad-connect/internal/service/compat"
	"github.com/explorex/nomad-connect/internal/service/match"
	"github.com/explorex/nomad-connect/internal/service/radar"
	"github.com/explorex/nomad-connect/internal/token"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	if cfg.Auth.TokenSecret == "" {
		log.Error("SESSION_TOKEN_SECRET must be set")
		return
	}

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Inject logger into app context
	appCtx := app.New(database, redisCache, log)

	codec := token.NewHMACCodec(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	guard := auth.NewLockoutGuard(cfg.Auth.LockoutAttempts, cfg.Auth.LockoutWindow)
	go func() {
		for range time.Tick(10 * time.Minute) {
			guard.Sweep()
		}
	}()

	ledger := quota.NewLedger(repository.NewQuotaRepository(database))

	accounts := account.NewService(appCtx, codec, guard, &account.LogMailer{AppCtx: appCtx})
	radarSvc := radar.NewService(appCtx, ledger)
	matchSvc := match.NewService(appCtx)
	compatSvc := compat.NewService(appCtx, ledger, llm.NewHTTPClient(cfg.LLM.Endpoint, cfg.LLM.APIKey))

	newStore := func(prefix string) ratelimit.Store {
		if cfg.Limits.Backend == "redis" {
			return ratelimit.NewRedisStore(redisCache.Client, prefix)
		}
		return ratelimit.NewMemoryStore(time.Minute)
	}

	srv := httpapi.NewServer(cfg, appCtx, codec, accounts, radarSvc, matchSvc, compatSvc, ledger, newStore)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", addr)

	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Error("server stopped", "err", err)
	}
}
