package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPending = "pending"
	idempotencyKeyTTL  = 24 * time.Hour
)

// claimScript returns the current value when the key exists, otherwise sets
// it and returns nil.
var claimScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	return current
end

redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
return false
`)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: idempotencyKeyTTL}
}

func (r *RedisAdapter) ClaimIdempotency(ctx context.Context, key string) (string, bool, error) {
	existing, err := claimScript.Run(ctx, r.client, []string{key}, idempotencyPending, int(r.ttl.Seconds())).Text()
	if errors.Is(err, redis.Nil) {
		return "", true, nil
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (r *RedisAdapter) CompleteIdempotency(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
