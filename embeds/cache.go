package embeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const embedKeyPrefix = "pubsite:embed:" // pubsite:embed:{url}

// DefaultMemoryCacheSize is the entry limit of NewMemoryCache.
const DefaultMemoryCacheSize = 1024

// MemoryCache is a process-local Cache with per-entry expiry and a fixed
// entry limit. When full, Set drops expired entries first and then the entry
// closest to expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	max     int
	now     func() time.Time
}

type memoryEntry struct {
	embed   Embed
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheSize(DefaultMemoryCacheSize)
}

// NewMemoryCacheSize returns a MemoryCache holding at most max entries.
func NewMemoryCacheSize(max int) *MemoryCache {
	if max < 1 {
		max = 1
	}
	return &MemoryCache{entries: make(map[string]memoryEntry), max: max, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, url string) (Embed, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entries[url]
	if !ok {
		return Embed{}, false, nil
	}
	if c.now().After(ent.expires) {
		delete(c.entries, url)
		return Embed{}, false, nil
	}
	return ent.embed, true, nil
}

func (c *MemoryCache) Set(_ context.Context, url string, e Embed, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.entries[url]; !ok && len(c.entries) >= c.max {
		c.evict(now)
	}
	c.entries[url] = memoryEntry{embed: e, expires: now.Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict makes room for one entry. c.mu must be held.
func (c *MemoryCache) evict(now time.Time) {
	for url, ent := range c.entries {
		if now.After(ent.expires) {
			delete(c.entries, url)
		}
	}
	if len(c.entries) < c.max {
		return
	}
	var (
		oldest   string
		oldestAt time.Time
		found    bool
	)
	for url, ent := range c.entries {
		if !found || ent.expires.Before(oldestAt) {
			oldest, oldestAt, found = url, ent.expires, true
		}
	}
	delete(c.entries, oldest)
}

// RedisCache shares resolved embeds between server processes.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisCacheFromURL connects using a redis:// URL.
func NewRedisCacheFromURL(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) key(url string) string {
	return embedKeyPrefix + url
}

func (c *RedisCache) Get(ctx context.Context, url string) (Embed, bool, error) {
	data, err := c.client.Get(ctx, c.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Embed{}, false, nil
	}
	if err != nil {
		return Embed{}, false, fmt.Errorf("failed to get embed: %w", err)
	}
	var e Embed
	if err := json.Unmarshal(data, &e); err != nil {
		return Embed{}, false, fmt.Errorf("failed to unmarshal embed: %w", err)
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, url string, e Embed, ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal embed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embed: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
