package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) (Conditions, bool, error)
	Set(ctx context.Context, key string, value Conditions, ttl time.Duration) error
}

// NewCache returns a Redis-backed cache when redisURL is set, otherwise an
// in-process one. password overrides any password in the URL.
func NewCache(redisURL, password string) (Cache, error) {
	if redisURL == "" {
		return NewMemoryCache(nil), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

type memoryEntry struct {
	value     Conditions
	expiresAt time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryCache creates an in-process cache. now may be nil.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{now: now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Conditions, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return Conditions{}, false, nil
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return Conditions{}, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value Conditions, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	return nil
}

type RedisCache struct {
	client *redis.Client
}

func (c *RedisCache) Get(ctx context.Context, key string) (Conditions, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Conditions{}, false, nil
		}
		return Conditions{}, false, err
	}
	var value Conditions
	if err := json.Unmarshal(raw, &value); err != nil {
		return Conditions{}, false, fmt.Errorf("decode cached weather: %w", err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value Conditions, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.SetEx(ctx, key, raw, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
