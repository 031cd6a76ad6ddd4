package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides 2-tier caching: L1 in-memory + optional L2 Redis.
// L1 is fast but lost on restart. L2 survives restarts and is shared
// between replicas. One Cache is built in main and passed to its users.
type Cache struct {
	mu         sync.Mutex
	l1         map[string]cacheEntry
	rdb        *redis.Client // nil if Redis unavailable
	ttl        time.Duration
	maxEntries int
	clock      Clock

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// CacheConfig configures NewCache.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	RedisURL   string // empty disables L2
}

// NewCache builds a Cache. An unreachable Redis disables L2 instead of failing.
func NewCache(ctx context.Context, cfg CacheConfig, clock Clock) *Cache {
	if clock == nil {
		clock = SystemClock()
	}
	c := &Cache{
		l1:         make(map[string]cacheEntry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		clock:      clock,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	slog.Info("cache: initialized", slog.Duration("ttl", c.ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", c.maxEntries))
	return c
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("jb:%x", hash[:12])
}

// Get tries L1, then L2. On L2 hit, populates L1.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	now := c.clock.Now()

	c.mu.Lock()
	if entry, ok := c.l1[key]; ok {
		if now.Before(entry.expiresAt) {
			c.mu.Unlock()
			c.hits.Add(1)
			metrics.CacheHits.Add(1)
			slog.Debug("cache: L1 hit", slog.String("key", key))
			return entry.data, true
		}
		delete(c.l1, key)
	}
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			c.hits.Add(1)
			metrics.CacheHits.Add(1)
			slog.Debug("cache: L2 hit", slog.String("key", key))
			c.store(key, data, now)
			return data, true
		}
	}

	c.misses.Add(1)
	metrics.CacheMisses.Add(1)
	return nil, false
}

// Set stores data in both tiers.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	c.store(key, data, c.clock.Now())

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

func (c *Cache) store(key string, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(now)
	c.l1[key] = cacheEntry{data: data, expiresAt: now.Add(c.ttl)}
}

// evictLocked makes room for one entry: expired entries go first,
// then the entries closest to expiry.
func (c *Cache) evictLocked(now time.Time) {
	if c.maxEntries <= 0 || len(c.l1) < c.maxEntries {
		return
	}
	for k, e := range c.l1 {
		if !now.Before(e.expiresAt) {
			delete(c.l1, k)
		}
	}
	for len(c.l1) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.l1 {
			if first || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt, first = k, e.expiresAt, false
			}
		}
		delete(c.l1, oldestKey)
	}
}

// Sweep drops expired L1 entries and returns how many were removed.
func (c *Cache) Sweep() int {
	if c == nil {
		return 0
	}
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.l1 {
		if !now.Before(e.expiresAt) {
			delete(c.l1, k)
			n++
		}
	}
	return n
}

// Len returns the number of L1 entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.l1)
}

// Stats returns hit/miss counters for this cache.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the Redis connection, if any.
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// CacheLoadJSON decodes a cached value of type T.
// Returns the zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it.
func CacheStoreJSON[T any](ctx context.Context, c *Cache, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}
