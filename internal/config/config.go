package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Auth struct {
		TokenSecret     string
		TokenTTL        time.Duration
		LockoutAttempts int
		LockoutWindow   time.Duration
	}

	LLM struct {
		Endpoint string
		APIKey   string
	}

	Limits struct {
		Backend        string
		APIWindow      time.Duration
		APIMax         int
		AuthWindow     time.Duration
		AuthMax        int
		ResetWindow    time.Duration
		ResetMax       int
		FeedbackWindow time.Duration
		FeedbackMax    int
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "api_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "nomad")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Auth / session tokens
	cfg.Auth.TokenSecret = os.Getenv("SESSION_TOKEN_SECRET")
	cfg.Auth.TokenTTL = getEnvDuration("SESSION_TOKEN_TTL", 7*24*time.Hour)
	cfg.Auth.LockoutAttempts = getEnvInt("LOGIN_LOCKOUT_ATTEMPTS", 8)
	cfg.Auth.LockoutWindow = getEnvDuration("LOGIN_LOCKOUT_WINDOW", 15*time.Minute)

	// Text-completion collaborator
	cfg.LLM.Endpoint = getEnvDefault("LLM_ENDPOINT", "http://localhost:8000/complete")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")

	// Rate limit families. In-memory limiter state is per-process; a
	// multi-instance deployment needs the Redis-backed store instead.
	cfg.Limits.Backend = getEnvDefault("RATE_LIMIT_BACKEND", "memory")
	cfg.Limits.APIWindow = getEnvDuration("RATE_API_WINDOW", time.Minute)
	cfg.Limits.APIMax = getEnvInt("RATE_API_MAX", 300)
	cfg.Limits.AuthWindow = getEnvDuration("RATE_AUTH_WINDOW", time.Minute)
	cfg.Limits.AuthMax = getEnvInt("RATE_AUTH_MAX", 10)
	cfg.Limits.ResetWindow = getEnvDuration("RATE_RESET_WINDOW", 15*time.Minute)
	cfg.Limits.ResetMax = getEnvInt("RATE_RESET_MAX", 5)
	cfg.Limits.FeedbackWindow = getEnvDuration("RATE_FEEDBACK_WINDOW", time.Hour)
	cfg.Limits.FeedbackMax = getEnvInt("RATE_FEEDBACK_MAX", 20)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
