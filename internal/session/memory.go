package session

import (
	"context"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
	expirable "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process LRU of sessions. Entries expire after ttl and the
// least recently used session is evicted once maxEntries is reached.
type MemoryStore struct {
	lru *expirable.LRU[string, Session]
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, Session](maxEntries, nil, ttl),
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s, ok := m.lru.Get(id)
	if !ok || s.Expired(time.Now()) {
		return nil, models.ErrNotFound
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	stored := s.clone()
	stored.dirty = false
	m.lru.Add(s.ID, *stored)
	s.MarkClean()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.lru.Remove(id)
	return nil
}

// Len returns the number of cached sessions.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
