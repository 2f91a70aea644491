package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peptiq-labs/peptiq/internal/domain"
)

const redisKeyPrefix = "peptiq:answer:"

// RedisStore is the Tier-2 cache, shared across instances. Bundles are stored
// as JSON under a common key prefix with a server-side TTL, so expiry needs no
// sweeper. Hit and miss counters are process-local.
type RedisStore struct {
	rdb    *redis.Client
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore wraps an existing redis client. It pings once to fail fast on
// a bad address.
func NewRedisStore(ctx context.Context, rdb *redis.Client) (*RedisStore, error) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*domain.AnswerBundle, bool, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var bundle domain.AnswerBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		s.misses.Add(1)
		_ = s.rdb.Del(ctx, redisKeyPrefix+key).Err()
		return nil, false, nil
	}

	s.hits.Add(1)
	return &bundle, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, bundle *domain.AnswerBundle, ttl time.Duration) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		EntryCount: int64(len(keys)),
		HitCount:   s.hits.Load(),
		MissCount:  s.misses.Load(),
	}, nil
}

func (s *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
