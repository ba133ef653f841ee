package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator claims video ids so the same video is processed once per window.
// Claims live in Redis when available, so they also hold across scans and replicas;
// otherwise they live in memory with the same expiry.
type Deduplicator struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string

	mu   sync.Mutex
	seen map[string]time.Time // id → claim expiry
}

// NewDeduplicator creates a Deduplicator. ttl <= 0 defaults to 48 hours.
func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultPromoTTL
	}
	return &Deduplicator{rdb: rdb, ttl: ttl, prefix: "gopromo:seen", seen: make(map[string]time.Time)}
}

// Claim returns true if id was not claimed before. The first caller wins.
// A Redis failure falls back to the in-memory set rather than dropping the video.
func (d *Deduplicator) Claim(ctx context.Context, id string) (bool, error) {
	if d.rdb != nil {
		key := fmt.Sprintf("%s:%s", d.prefix, id)
		ok, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
		if err == nil {
			return ok, nil
		}
		return d.claimLocal(id), fmt.Errorf("dedup claim %s: %w", id, err)
	}
	return d.claimLocal(id), nil
}

// Release drops a claim so that a failed video can be retried by a later scan.
func (d *Deduplicator) Release(ctx context.Context, id string) error {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
	if d.rdb != nil {
		return d.rdb.Del(ctx, fmt.Sprintf("%s:%s", d.prefix, id)).Err()
	}
	return nil
}

func (d *Deduplicator) claimLocal(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	return true
}
