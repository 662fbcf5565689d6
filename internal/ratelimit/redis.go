package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementBelowScript increments the counter only while it is below the limit.
// The key expires one window after the first attempt.
// Returns 1 when allowed, 0 when rejected.
var incrementBelowScript = redis.NewScript(`
local key = KEYS[1]
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local count = tonumber(redis.call('GET', key) or '0')
if count >= max then
    return 0
end

count = redis.call('INCR', key)
if count == 1 then
    redis.call('PEXPIRE', key, window)
end
return 1
`)

// RedisStore keeps counters in Redis. The check and increment run as one script,
// so the limit holds across processes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore. An empty prefix defaults to "kontakt:rl:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "kontakt:rl:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) CheckAndIncrement(ctx context.Context, ip string, max int, window time.Duration) (bool, error) {
	res, err := incrementBelowScript.Run(ctx, s.client,
		[]string{s.prefix + ip},
		max,
		window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return res == 1, nil
}
