package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores recognition results by image digest.
type Cache interface {
	Get(ctx context.Context, key string) (Recognition, bool, error)
	Set(ctx context.Context, key string, rec Recognition) error
}

// MemoryCache keeps results in process memory.
type MemoryCache struct {
	store *cache.Cache
}

// NewMemoryCache creates an in-process cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Recognition, bool, error) {
	v, found := m.store.Get(key)
	if !found {
		return Recognition{}, false, nil
	}
	return v.(Recognition), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, rec Recognition) error {
	m.store.SetDefault(key, rec)
	return nil
}

// RedisCache shares results between instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

const redisKeyPrefix = "voltfox:recognition:"

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Recognition, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Recognition{}, false, nil
	}
	if err != nil {
		return Recognition{}, false, fmt.Errorf("failed to read cached recognition: %w", err)
	}

	var rec Recognition
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Recognition{}, false, fmt.Errorf("failed to decode cached recognition: %w", err)
	}
	return rec, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, rec Recognition) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache recognition: %w", err)
	}
	return nil
}
