package slotmutex

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisMutex(t *testing.T, prefix string) (*Mutex, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(NewRedisStore(client, prefix), Options{TTL: 10 * time.Second}), server
}

func TestRedisStoreAcquireRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mutex, server := newRedisMutex(t, "")

	ok, err := mutex.Acquire(ctx, period(13, 15), "court", "rsv-1")
	if err != nil || !ok {
		t.Fatalf("expected acquire to succeed, got ok=%v err=%v", ok, err)
	}
	if got, _ := server.Get("court:20240314130000"); got != "rsv-1" {
		t.Fatalf("expected bucket owned by rsv-1, got %q", got)
	}
	if ttl := server.TTL("court:20240314140000"); ttl <= 0 || ttl > 10*time.Second {
		t.Fatalf("expected bucket TTL within 10s, got %s", ttl)
	}

	ok, err = mutex.Acquire(ctx, period(14, 16), "court", "rsv-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected overlapping acquire to fail")
	}
	if server.Exists("court:20240314150000") {
		t.Fatalf("failed acquire must not leave partial keys")
	}

	if err := mutex.Release(ctx, period(13, 15), "court", "rsv-2"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if !server.Exists("court:20240314130000") {
		t.Fatalf("foreign release must not delete keys")
	}
	if err := mutex.Release(ctx, period(13, 15), "court", "rsv-1"); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if server.Exists("court:20240314130000") || server.Exists("court:20240314140000") {
		t.Fatalf("owner release must delete its keys")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mutex, server := newRedisMutex(t, "slot:")

	if ok, err := mutex.Acquire(ctx, period(9, 10), "court", "rsv-1"); err != nil || !ok {
		t.Fatalf("expected acquire to succeed, got ok=%v err=%v", ok, err)
	}
	if !server.Exists("slot:court:20240314090000") {
		t.Fatalf("expected prefixed key to exist")
	}

	server.FastForward(11 * time.Second)

	if ok, err := mutex.Acquire(ctx, period(9, 10), "court", "rsv-2"); err != nil || !ok {
		t.Fatalf("expected acquire after expiry to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	t.Parallel()

	mutex, server := newRedisMutex(t, "")
	server.Close()

	if _, err := mutex.Acquire(context.Background(), period(9, 10), "court", "rsv-1"); err == nil {
		t.Fatalf("expected error when redis is unavailable")
	}
}
