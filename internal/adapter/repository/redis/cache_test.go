package redis

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "foo")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(val) != "bar" {
		t.Fatalf("expected bar, got %s", val)
	}
}

func TestCacheGetMissing(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)

	if _, err := cache.Get(context.Background(), "absent"); err == nil {
		t.Fatal("expected error for absent key")
	}
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := cache.Delete(ctx, "foo"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "foo"); err == nil {
		t.Fatalf("expected error getting deleted key")
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	keys := []string{
		"unmatched:bank:month:2024-03:50:0",
		"unmatched:ledger:month:2024-03:50:0",
		"unmatched:ledger::" + ":50:0",
	}
	for _, k := range keys {
		if err := cache.Set(ctx, k, []byte("[]"), time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := cache.Set(ctx, "other:key", []byte("keep"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := cache.DeletePrefix(ctx, "unmatched:"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}

	for _, k := range keys {
		if _, err := cache.Get(ctx, k); err == nil {
			t.Errorf("key %s should be gone", k)
		}
	}

	val, err := cache.Get(ctx, "other:key")
	if err != nil || string(val) != "keep" {
		t.Errorf("unrelated key must survive, got %s (%v)", val, err)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "foo", []byte("bar"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "foo"); err == nil {
		t.Fatal("expected key to expire")
	}
}
