package slotmutex

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// acquireScript sets every key only when none is held by a different owner.
var acquireScript = redis.NewScript(`
for _, key in ipairs(KEYS) do
  local current = redis.call('GET', key)
  if current and current ~= ARGV[1] then
    return 0
  end
end
for _, key in ipairs(KEYS) do
  redis.call('SET', key, ARGV[1], 'PX', ARGV[2])
end
return 1
`)

// releaseScript deletes only the keys still owned by the caller.
var releaseScript = redis.NewScript(`
local removed = 0
for _, key in ipairs(KEYS) do
  if redis.call('GET', key) == ARGV[1] then
    removed = removed + redis.call('DEL', key)
  end
end
return removed
`)

// RedisStore keeps bucket keys in Redis. Multi-key scripts require every key of
// a call to live on one node, so cluster deployments need a single-shard client.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. prefix is prepended verbatim to every key.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient dials addr and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

// AcquireAll implements Store.
func (s *RedisStore) AcquireAll(ctx context.Context, keys []string, owner string, ttl time.Duration) (bool, error) {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	result, err := acquireScript.Run(ctx, s.client, s.prefixed(keys), owner, ms).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// ReleaseAll implements Store.
func (s *RedisStore) ReleaseAll(ctx context.Context, keys []string, owner string) error {
	return releaseScript.Run(ctx, s.client, s.prefixed(keys), owner).Err()
}

func (s *RedisStore) prefixed(keys []string) []string {
	if s.prefix == "" {
		return keys
	}
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = s.prefix + key
	}
	return out
}
