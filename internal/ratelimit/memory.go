package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps buckets in a process-local map. A background sweep
// evicts expired buckets to bound memory. State is lost on restart and
// not shared across instances.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}

	// now is swappable in tests.
	now func() time.Time
}

// NewMemoryStore starts a store whose sweep runs every sweepInterval.
// Call Stop to end the sweep goroutine.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go s.sweep(sweepInterval)
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, b.resetAt, nil
}

func (s *MemoryStore) Stop() {
	close(s.stop)
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, b := range s.buckets {
				if !now.Before(b.resetAt) {
					delete(s.buckets, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
