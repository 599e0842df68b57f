package recognizer

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
)

// Cache maps image content keys to recognized text. Entries never expire.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
}

// MemoryCache is a process-lifetime map.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[key]
	return text, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = text
	return nil
}

// Len returns the number of entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisKeyPrefix namespaces cache keys in a shared Redis.
const RedisKeyPrefix = "matchscan:ocr:"

// RedisCache shares recognized text between runs through Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to url and pings it.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCodeConfigInvalid, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrorCodeUnavailable, "connect to redis")
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := c.client.Get(ctx, RedisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrorCodeUnavailable, "redis get")
	}
	return text, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, text string) error {
	if err := c.client.Set(ctx, RedisKeyPrefix+key, text, 0).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCodeUnavailable, "redis set")
	}
	return nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// TieredCache reads through a local cache to a shared one.
type TieredCache struct {
	local  Cache
	shared Cache
}

// NewTieredCache layers local in front of shared.
func NewTieredCache(local, shared Cache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

func (c *TieredCache) Get(ctx context.Context, key string) (string, bool, error) {
	if text, ok, err := c.local.Get(ctx, key); err == nil && ok {
		return text, true, nil
	}
	text, ok, err := c.shared.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	_ = c.local.Set(ctx, key, text)
	return text, true, nil
}

// Set writes locally first so a shared-tier failure still caches for this run.
func (c *TieredCache) Set(ctx context.Context, key, text string) error {
	if err := c.local.Set(ctx, key, text); err != nil {
		return err
	}
	return c.shared.Set(ctx, key, text)
}
