package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Description cache: L1 in-memory + L2 Redis.
// Descriptions rarely change inside a promo window, so a hit saves a watch page fetch.
var descCache *tieredCache

// Cache metrics, atomic counters.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// tieredCache implements L1 (memory) + L2 (Redis) caching.
type tieredCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
}

type cacheEntry struct {
	data      string
	expiresAt time.Time
}

// ConnectRedis parses redisURL and pings the server.
// Returns nil when redisURL is empty or the server is unreachable.
func ConnectRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("redis: invalid URL, disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis: unreachable, disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("redis: connected", slog.String("addr", opts.Addr))
	return rdb
}

// InitCache sets up the 2-tier description cache. rdb may be nil to disable L2.
func InitCache(rdb *redis.Client, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{rdb: rdb, ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval}
	descCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", rdb != nil), slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("gp:%x", hash[:12])
}

// CacheGetDescription tries L1, then L2. On L2 hit, populates L1.
func CacheGetDescription(ctx context.Context, videoID string) (string, bool) {
	if descCache == nil {
		cacheMisses.Add(1)
		return "", false
	}
	key := CacheKey("desc", videoID)

	if val, ok := descCache.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			cacheHits.Add(1)
			return entry.data, true
		}
		descCache.l1.Delete(key)
	}

	if descCache.rdb != nil {
		data, err := descCache.rdb.Get(ctx, key).Result()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("video_id", videoID))
			cacheHits.Add(1)
			descCache.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(descCache.ttl)})
			return data, true
		}
	}

	cacheMisses.Add(1)
	return "", false
}

// CacheSetDescription stores a description in both L1 and L2.
func CacheSetDescription(ctx context.Context, videoID, description string) {
	if descCache == nil {
		return
	}
	key := CacheKey("desc", videoID)

	descCache.evictIfNeeded()
	descCache.l1.Store(key, &cacheEntry{data: description, expiresAt: time.Now().Add(descCache.ttl)})

	if descCache.rdb != nil {
		if err := descCache.rdb.Set(ctx, key, description, descCache.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// evictIfNeeded removes entries when L1 exceeds maxEntries:
// expired entries first, then the ones closest to expiry.
func (c *tieredCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
				c.l1.Delete(key)
			}
			return true
		})
	}
}
