package cache

import (
	"context"
	"time"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

// Store is an answer cache tier. Both tiers hold the same AnswerBundle
// payload keyed by the query's normalized key; they differ only in scope
// and durability.
type Store interface {
	// Get returns the cached bundle for key, or ok=false on a miss.
	// Expired entries count as misses.
	Get(ctx context.Context, key string) (*domain.AnswerBundle, bool, error)
	// Set stores the bundle under key. Writing an existing key replaces the
	// value and resets its TTL.
	Set(ctx context.Context, key string, bundle *domain.AnswerBundle, ttl time.Duration) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Stats reports the tier's current counters.
	Stats(ctx context.Context) (Stats, error)
}

// Stats describes one cache tier. HitCount and MissCount are process-local
// and reset on restart.
type Stats struct {
	EntryCount int64 `json:"entry_count"`
	HitCount   int64 `json:"hit_count"`
	MissCount  int64 `json:"miss_count"`
}
