package travel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw API responses keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, key string) ([]byte, bool)                   { return nil, false }
func (NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
}

// RedisCache shares responses between replicas.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "ragagent:travel:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// NewCache builds the cache named by travel.cache.
func NewCache(kind string, client *redis.Client) (Cache, error) {
	switch kind {
	case "", "memory":
		return NewMemoryCache(), nil
	case "none":
		return NoopCache{}, nil
	case "redis":
		if client == nil {
			return nil, errors.New("travel cache redis requires a redis client")
		}
		return NewRedisCache(client), nil
	default:
		return nil, errors.New("unsupported travel cache " + kind)
	}
}

func cacheKey(endpoint string, query url.Values) string {
	sum := sha256.Sum256([]byte(endpoint + "?" + query.Encode()))
	return hex.EncodeToString(sum[:])
}
