package storage

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps attempts in process memory. Attempts are lost on
// restart and are not shared between replicas.
type MemoryStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
	now   func() time.Time
}

var _ AttemptStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory attempt store
func NewMemoryStore() *MemoryStore {
	// Expiry is checked against Attempt.ExpiresAt, not the cache's own TTL
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
		now:   time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Add(attempt.ID, attempt, gocache.NoExpiration); err != nil {
		return ErrAttemptExists
	}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, id string) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	s.cache.Delete(id)

	attempt := v.(Attempt)
	if attempt.Expired(s.now()) {
		return Attempt{}, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *MemoryStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, item := range s.cache.Items() {
		if item.Object.(Attempt).Expired(now) {
			s.cache.Delete(id)
			removed++
		}
	}
	return removed, nil
}

// Len returns how many attempts are stored, expired or not
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
