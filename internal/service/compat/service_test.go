package compat_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/cache"
	"github.com/explorex/nomad-connect/internal/db"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/quota"
	"github.com/explorex/nomad-connect/internal/repository"
	"github.com/explorex/nomad-connect/internal/service/compat"
)

// fakeLLM returns a canned summary and counts calls.
type fakeLLM struct {
	calls   int
	fail    bool
	summary string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("model overloaded")
	}
	return f.summary, nil
}

func setupCompat(t *testing.T, client *fakeLLM) (*compat.Service, *gorm.DB) {
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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(gdb, rdb, logger)
	ledger := quota.NewLedger(repository.NewQuotaRepository(gdb))
	return compat.NewService(appCtx, ledger, client), gdb
}

func seedPair(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	for i, name := range []string{"alice", "bob"} {
		require.NoError(t, gdb.Create(&db.User{
			ID:           uint64(i + 1),
			Username:     name,
			Email:        name + "@test.com",
			PasswordHash: "x",
			Active:       true,
			Tier:         "free",
			IsVisible:    true,
		}).Error)
	}
}

func TestCheckConsumesAndCaches(t *testing.T) {
	llm := &fakeLLM{summary: "both love surfing"}
	svc, gdb := setupCompat(t, llm)
	ctx := context.Background()
	seedPair(t, gdb)

	res, err := svc.Check(ctx, 1, 2, quota.TierFree)
	require.NoError(t, err)
	assert.Equal(t, "both love surfing", res.Summary)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, res.ChecksUsed)
	assert.Equal(t, 3, res.ChecksLimit)
	assert.Equal(t, 1, llm.calls)

	// Second check replays the cached result without consuming quota.
	res, err = svc.Check(ctx, 1, 2, quota.TierFree)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, res.ChecksUsed)
	assert.Equal(t, 1, llm.calls)

	// The cache key is pair-canonical, so the reverse order hits too.
	res, err = svc.Check(ctx, 2, 1, quota.TierFree)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, llm.calls)
}

func TestCheckUpstreamFailureKeepsConsumedUnit(t *testing.T) {
	llm := &fakeLLM{fail: true}
	svc, gdb := setupCompat(t, llm)
	ctx := context.Background()
	seedPair(t, gdb)

	_, err := svc.Check(ctx, 1, 2, quota.TierFree)
	require.ErrorIs(t, err, apperr.ErrUpstream)

	// The failed attempt still counted.
	var profile db.QuotaProfile
	require.NoError(t, gdb.First(&profile, "user_id = ?", 1).Error)
	assert.Equal(t, 1, profile.CompatibilityChecksUsed)
}

func TestCheckQuotaGate(t *testing.T) {
	llm := &fakeLLM{summary: "s"}
	svc, gdb := setupCompat(t, llm)
	ctx := context.Background()
	seedPair(t, gdb)
	for i := 3; i <= 6; i++ {
		require.NoError(t, gdb.Create(&db.User{
			ID: uint64(i), Username: fmt.Sprintf("u%d", i), Email: fmt.Sprintf("u%d@test.com", i),
			PasswordHash: "x", Active: true, Tier: "free", IsVisible: true,
		}).Error)
	}

	// Distinct pairs so the cache never short-circuits the gate.
	for other := uint64(2); other <= 4; other++ {
		_, err := svc.Check(ctx, 1, other, quota.TierFree)
		require.NoError(t, err)
	}

	_, err := svc.Check(ctx, 1, 5, quota.TierFree)
	var qe *apperr.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "compatibility_check", qe.Feature)
	assert.Equal(t, 3, qe.Limit)
}

func TestCheckValidation(t *testing.T) {
	svc, gdb := setupCompat(t, &fakeLLM{summary: "s"})
	ctx := context.Background()
	seedPair(t, gdb)

	var ve *apperr.ValidationError
	_, err := svc.Check(ctx, 1, 1, quota.TierFree)
	require.ErrorAs(t, err, &ve)

	_, err = svc.Check(ctx, 1, 99, quota.TierFree)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
