package cache

import (
	"context"
	"sync"
	"time"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

type memoryEntry struct {
	bundle    domain.AnswerBundle
	expiresAt time.Time
}

// MemoryStore is the Tier-1 cache: a process-local map with lazy expiry.
// Entries are only evicted when a lookup finds them expired, so EntryCount
// may transiently include dead entries.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewMemoryStore creates an empty Tier-1 cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*domain.AnswerBundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		s.misses++
		return nil, false, nil
	}

	s.hits++
	bundle := entry.bundle
	return &bundle, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, bundle *domain.AnswerBundle, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		bundle:    *bundle,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memoryEntry)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		EntryCount: int64(len(s.entries)),
		HitCount:   s.hits,
		MissCount:  s.misses,
	}, nil
}
