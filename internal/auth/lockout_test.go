package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/explorex/nomad-connect/internal/errors"
)

func newTestGuard() (*LockoutGuard, *time.Time, *time.Duration) {
	g := NewLockoutGuard(8, 15*time.Minute)
	now := time.Now()
	var slept time.Duration
	g.now = func() time.Time { return now }
	g.sleep = func(d time.Duration) { slept += d }
	return g, &now, &slept
}

func TestLockoutAfterThreshold(t *testing.T) {
	g, _, _ := newTestGuard()
	key := Key("User@Example.com ", "1.2.3.4")

	for i := 0; i < 7; i++ {
		g.RecordFailure(key)
		require.NoError(t, g.Check(key), "attempt %d should not lock", i+1)
	}

	// The eighth failure trips the lock.
	g.RecordFailure(key)
	err := g.Check(key)
	var locked *apperr.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.RetryAfter, 0)
}

func TestLockedCheckAddsDelay(t *testing.T) {
	g, _, slept := newTestGuard()
	key := Key("a@b.com", "ip")

	for i := 0; i < 8; i++ {
		g.RecordFailure(key)
	}

	require.Error(t, g.Check(key))
	assert.GreaterOrEqual(t, *slept, 150*time.Millisecond)
	assert.LessOrEqual(t, *slept, 500*time.Millisecond)
}

func TestLockExpires(t *testing.T) {
	g, now, _ := newTestGuard()
	key := Key("a@b.com", "ip")

	for i := 0; i < 8; i++ {
		g.RecordFailure(key)
	}
	require.Error(t, g.Check(key))

	*now = now.Add(15*time.Minute + time.Second)
	assert.NoError(t, g.Check(key))
}

// The counter resets to zero when the lock trips, so after a lock
// expires it takes a full new run of failures to lock again.
func TestCounterResetsOnLock(t *testing.T) {
	g, now, _ := newTestGuard()
	key := Key("a@b.com", "ip")

	for i := 0; i < 8; i++ {
		g.RecordFailure(key)
	}
	*now = now.Add(16 * time.Minute)

	g.RecordFailure(key)
	assert.NoError(t, g.Check(key))
}

func TestSuccessClearsFailures(t *testing.T) {
	g, _, _ := newTestGuard()
	key := Key("a@b.com", "ip")

	for i := 0; i < 7; i++ {
		g.RecordFailure(key)
	}
	g.Clear(key)

	// One more failure is attempt #1, far from the threshold.
	g.RecordFailure(key)
	assert.NoError(t, g.Check(key))
}

func TestKeyNormalizesEmail(t *testing.T) {
	assert.Equal(t, "user@example.com::1.2.3.4", Key("  USER@example.COM ", "1.2.3.4"))
}

func TestSweepKeepsLockedEntries(t *testing.T) {
	g, now, _ := newTestGuard()
	locked := Key("locked@b.com", "ip")
	stale := Key("stale@b.com", "ip")

	for i := 0; i < 8; i++ {
		g.RecordFailure(locked)
	}
	for i := 0; i < 8; i++ {
		g.RecordFailure(stale)
	}

	*now = now.Add(1 * time.Minute)
	g.Sweep()
	require.Error(t, g.Check(locked))

	*now = now.Add(20 * time.Minute)
	g.Sweep()
	g.mu.Lock()
	assert.Empty(t, g.entries)
	g.mu.Unlock()
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("hunter2abc")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2abc"))
	assert.False(t, CheckPassword(hash, "wrong"))

	assert.NoError(t, ValidatePassword("abcdef12"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("nodigitshere"))
	assert.Error(t, ValidatePassword("12345678"))
}
