package auth

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	apperr "github.com/explorex/nomad-connect/internal/errors"
)

type failureState struct {
	attempts  int
	lockUntil time.Time
}

// LockoutGuard counts failed logins per (email, client IP) and locks
// the identity after a threshold. State lives in process memory, so a
// horizontally scaled deployment needs a shared store to be accurate.
type LockoutGuard struct {
	mu      sync.Mutex
	entries map[string]*failureState

	threshold int
	lockFor   time.Duration

	// now and sleep are swappable in tests.
	now   func() time.Time
	sleep func(time.Duration)
}

func NewLockoutGuard(threshold int, lockFor time.Duration) *LockoutGuard {
	return &LockoutGuard{
		entries:   make(map[string]*failureState),
		threshold: threshold,
		lockFor:   lockFor,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Key builds the guard key from a normalized email and client IP.
func Key(email, clientIP string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "::" + clientIP
}

// Check returns a LockedError when the key is currently locked out.
// Locked responses carry a short random delay to flatten timing
// differences and slow brute-force loops; the password hash is never
// touched while a lock is active.
func (g *LockoutGuard) Check(key string) error {
	g.mu.Lock()
	state, ok := g.entries[key]
	var remaining time.Duration
	if ok && g.now().Before(state.lockUntil) {
		remaining = state.lockUntil.Sub(g.now())
	}
	g.mu.Unlock()

	if remaining <= 0 {
		return nil
	}

	g.sleep(time.Duration(150+rand.Intn(351)) * time.Millisecond)
	return &apperr.LockedError{RetryAfter: int(remaining.Seconds()) + 1}
}

// RecordFailure notes a failed credential check. Reaching the threshold
// starts a lockout window and zeroes the counter, so lockouts are the
// penalty rather than ever-escalating counts.
func (g *LockoutGuard) RecordFailure(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.entries[key]
	if !ok {
		state = &failureState{}
		g.entries[key] = state
	}

	state.attempts++
	if state.attempts >= g.threshold {
		state.lockUntil = g.now().Add(g.lockFor)
		state.attempts = 0
	}
}

// Clear removes all failure state for the key after a successful login.
func (g *LockoutGuard) Clear(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

// Sweep drops entries that are neither locked nor carrying failures
// newer than the lock window. Intended to be called periodically.
func (g *LockoutGuard) Sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, state := range g.entries {
		if state.attempts == 0 && !now.Before(state.lockUntil) {
			delete(g.entries, key)
		}
	}
}
