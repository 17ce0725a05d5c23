package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/auth"
	"github.com/explorex/nomad-connect/internal/cache"
	"github.com/explorex/nomad-connect/internal/config"
	"github.com/explorex/nomad-connect/internal/db"
	"github.com/explorex/nomad-connect/internal/httpapi"
	"github.com/explorex/nomad-connect/internal/quota"
	"github.com/explorex/nomad-connect/internal/ratelimit"
	"github.com/explorex/nomad-connect/internal/repository"
	"github.com/explorex/nomad-connect/internal/service/account"
	"github.com/explorex/nomad-connect/internal/service/compat"
	"github.com/explorex/nomad-connect/internal/service/match"
	"github.com/explorex/nomad-connect/internal/service/radar"
	"github.com/explorex/nomad-connect/internal/token"
)

type staticLLM struct{}

func (staticLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return "you both chase the sun", nil
}

type testEnv struct {
	server *httpapi.Server
	db     *gorm.DB
	codec  token.Codec
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Limits.APIWindow = time.Minute
	cfg.Limits.APIMax = 1000
	cfg.Limits.AuthWindow = time.Minute
	cfg.Limits.AuthMax = 3
	cfg.Limits.ResetWindow = time.Minute
	cfg.Limits.ResetMax = 2
	cfg.Limits.FeedbackWindow = time.Minute
	cfg.Limits.FeedbackMax = 100
	return cfg
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rdb := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(gdb, rdb, slogger)

	codec := token.NewHMACCodec("test-secret", time.Hour)
	guard := auth.NewLockoutGuard(8, 15*time.Minute)
	ledger := quota.NewLedger(repository.NewQuotaRepository(gdb))

	accounts := account.NewService(appCtx, codec, guard, &account.LogMailer{AppCtx: appCtx})
	radarSvc := radar.NewService(appCtx, ledger)
	matchSvc := match.NewService(appCtx)
	compatSvc := compat.NewService(appCtx, ledger, staticLLM{})

	newStore := func(prefix string) ratelimit.Store {
		store := ratelimit.NewMemoryStore(time.Minute)
		t.Cleanup(store.Stop)
		return store
	}

	server := httpapi.NewServer(testConfig(), appCtx, codec, accounts, radarSvc, matchSvc, compatSvc, ledger, newStore)
	return &testEnv{server: server, db: gdb, codec: codec}
}

func (e *testEnv) request(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signupUser registers through the API and returns (id, token).
func (e *testEnv) signupUser(t *testing.T, name string) (uint64, string) {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": name,
		"email":    name + "@test.com",
		"password": "hunter42x",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	return uint64(user["id"].(float64)), body["sessionToken"].(string)
}

func TestHealth(t *testing.T) {
	env := setupServer(t)
	rec := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestSignupAndLoginFlow(t *testing.T) {
	env := setupServer(t)

	id, sessionToken := env.signupUser(t, "alice")
	require.NotZero(t, id)
	require.NotEmpty(t, sessionToken)

	rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@test.com",
		"password": "hunter42x",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["sessionToken"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	_, leaked := user["passwordHash"]
	assert.False(t, leaked)
}

func TestSignupValidation(t *testing.T) {
	env := setupServer(t)

	rec := env.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "not-an-email",
		"password": "hunter42x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid email format", decodeBody(t, rec)["error"])

	rec = env.request(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "a@test.com",
		"password": "hunter42x",
		"extra":    "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionGuard(t *testing.T) {
	env := setupServer(t)
	id, sessionToken := env.signupUser(t, "alice")
	otherID, otherToken := env.signupUser(t, "bob")

	swipe := map[string]any{"swiperId": id, "swipedId": otherID, "direction": "right"}

	// No token.
	rec := env.request(t, http.MethodPost, "/api/swipes", "", swipe)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = env.request(t, http.MethodPost, "/api/swipes", "garbage", swipe)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token for a different identity.
	rec = env.request(t, http.MethodPost, "/api/swipes", otherToken, swipe)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Missing declared identity fails validation before the guard.
	rec = env.request(t, http.MethodPost, "/api/swipes", sessionToken, map[string]any{
		"swipedId": otherID, "direction": "right",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Matching token and identity.
	rec = env.request(t, http.MethodPost, "/api/swipes", sessionToken, swipe)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSwipeAndMatchRoundTrip(t *testing.T) {
	env := setupServer(t)
	aliceID, aliceToken := env.signupUser(t, "alice")
	bobID, bobToken := env.signupUser(t, "bob")

	rec := env.request(t, http.MethodPost, "/api/swipes", aliceToken,
		map[string]any{"swiperId": aliceID, "swipedId": bobID, "direction": "right"})
	require.Equal(t, http.StatusOK, rec.Code)
	_, matched := decodeBody(t, rec)["match"]
	assert.False(t, matched)

	rec = env.request(t, http.MethodPost, "/api/swipes", bobToken,
		map[string]any{"swiperId": bobID, "swipedId": aliceID, "direction": "right"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "match")

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/matches/%d", aliceID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decodeBody(t, rec)["matches"].([]any)
	require.Len(t, matches, 1)
	entry := matches[0].(map[string]any)
	assert.Equal(t, "bob", entry["username"])
}

func TestRadarScanEndpoint(t *testing.T) {
	env := setupServer(t)
	aliceID, aliceToken := env.signupUser(t, "alice")
	bobID, _ := env.signupUser(t, "bob")

	require.NoError(t, env.db.Create(&db.UserLocation{
		UserID: bobID, Lat: 37.01, Lng: -122.0, UpdatedAt: time.Now().UTC(),
	}).Error)

	rec := env.request(t, http.MethodPost, "/api/radar/scan", aliceToken, map[string]any{
		"userId": aliceID, "lat": 37.0, "lng": -122.0, "radiusKm": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].(map[string]any)["username"])
	assert.Equal(t, float64(1), body["scansUsed"])
}

func TestQuotaExhaustionOverHTTP(t *testing.T) {
	env := setupServer(t)
	aliceID, aliceToken := env.signupUser(t, "alice")

	scan := map[string]any{"userId": aliceID, "lat": 37.0, "lng": -122.0}
	for i := 0; i < 5; i++ {
		rec := env.request(t, http.MethodPost, "/api/radar/scan", aliceToken, scan)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.request(t, http.MethodPost, "/api/radar/scan", aliceToken, scan)
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["requiresUpgrade"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, "free", body["tier"])
}

func TestCompatibilityEndpoint(t *testing.T) {
	env := setupServer(t)
	aliceID, aliceToken := env.signupUser(t, "alice")
	bobID, _ := env.signupUser(t, "bob")

	req := map[string]any{"userId": aliceID, "otherUserId": bobID}
	rec := env.request(t, http.MethodPost, "/api/compatibility/check", aliceToken, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "you both chase the sun", body["summary"])
	assert.Equal(t, false, body["cached"])

	rec = env.request(t, http.MethodPost, "/api/compatibility/check", aliceToken, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["cached"])
}

func TestQuotaStatusEndpoint(t *testing.T) {
	env := setupServer(t)
	aliceID, aliceToken := env.signupUser(t, "alice")

	rec := env.request(t, http.MethodGet, fmt.Sprintf("/api/quota/%d", aliceID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "free", body["tier"])
	radarScans := body["radarScans"].(map[string]any)
	assert.Equal(t, float64(0), radarScans["used"])
	assert.Equal(t, float64(5), radarScans["limit"])
}

func TestAuthRateLimitHeaders(t *testing.T) {
	env := setupServer(t)

	login := map[string]string{"email": "a@test.com", "password": "hunter42x"}

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = env.request(t, http.MethodPost, "/api/auth/login", "", login)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, fmt.Sprintf("%d", 3-(i+1)), rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
	}

	rec = env.request(t, http.MethodPost, "/api/auth/login", "", login)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many authentication attempts, please try again later", decodeBody(t, rec)["error"])
}

func TestChatRequestEndpoints(t *testing.T) {
	env := setupServer(t)
	aliceID, aliceToken := env.signupUser(t, "alice")
	bobID, bobToken := env.signupUser(t, "bob")

	rec := env.request(t, http.MethodPost, "/api/radar/chat-request", aliceToken,
		map[string]any{"senderId": aliceID, "receiverId": bobID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	requestID := decodeBody(t, rec)["id"].(string)

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/radar/chat-requests/%d", bobID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, fmt.Sprintf("/api/radar/chat-request/%s/respond", requestID), bobToken,
		map[string]any{"userId": bobID, "response": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, decodeBody(t, rec), "match")

	// Double-respond conflicts.
	rec = env.request(t, http.MethodPost, fmt.Sprintf("/api/radar/chat-request/%s/respond", requestID), bobToken,
		map[string]any{"userId": bobID, "response": "declined"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
