package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		k1 := CacheKey("desc", "dQw4w9WgXcQ")
		k2 := CacheKey("desc", "dQw4w9WgXcQ")
		if k1 != k2 {
			t.Errorf("CacheKey not deterministic: %q != %q", k1, k2)
		}
	})

	t.Run("different inputs differ", func(t *testing.T) {
		if CacheKey("desc", "a") == CacheKey("desc", "b") {
			t.Error("different inputs produced same key")
		}
	})

	t.Run("has prefix", func(t *testing.T) {
		if k := CacheKey("test"); !strings.HasPrefix(k, "gp:") {
			t.Errorf("expected gp: prefix, got %q", k)
		}
	})
}

func TestDescriptionCacheMemoryOnly(t *testing.T) {
	InitCache(nil, time.Minute, 100, 5*time.Minute)
	ctx := context.Background()

	if _, ok := CacheGetDescription(ctx, "v1"); ok {
		t.Error("expected miss on empty cache")
	}
	CacheSetDescription(ctx, "v1", "Merci à Hostinger")
	got, ok := CacheGetDescription(ctx, "v1")
	if !ok || got != "Merci à Hostinger" {
		t.Errorf("got (%q, %v), want hit", got, ok)
	}
}

func TestDescriptionCacheRedisTier(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	InitCache(rdb, time.Minute, 100, 5*time.Minute)
	CacheSetDescription(ctx, "v2", "code SOLENE")

	if !mr.Exists(CacheKey("desc", "v2")) {
		t.Fatal("description not written to redis")
	}
	if ttl := mr.TTL(CacheKey("desc", "v2")); ttl != time.Minute {
		t.Errorf("redis ttl = %v, want 1m", ttl)
	}

	// A fresh L1 must be refilled from Redis.
	InitCache(rdb, time.Minute, 100, 5*time.Minute)
	got, ok := CacheGetDescription(ctx, "v2")
	if !ok || got != "code SOLENE" {
		t.Errorf("got (%q, %v) from L2", got, ok)
	}
}

func TestDescriptionCacheEviction(t *testing.T) {
	InitCache(nil, time.Minute, 2, 5*time.Minute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		CacheSetDescription(ctx, id, "desc "+id)
	}

	count := 0
	descCache.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count > 2 {
		t.Errorf("L1 holds %d entries, max 2", count)
	}
	if _, ok := CacheGetDescription(ctx, "c"); !ok {
		t.Error("newest entry was evicted")
	}
}
