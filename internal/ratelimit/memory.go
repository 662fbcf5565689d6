package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
)

// MemoryStore keeps counters in process memory. Counts are exact within one process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.RateLimitRecord
	now     Clock
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.RateLimitRecord),
		now:     time.Now,
	}
}

// SetClock overrides the time source.
func (s *MemoryStore) SetClock(now Clock) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) CheckAndIncrement(ctx context.Context, ip string, max int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return checkAndIncrement(s.records, ip, max, window, s.now()), nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return purge(s.records, window, s.now()), nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
