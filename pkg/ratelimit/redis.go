package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftwatch/provision-relay/pkg/logger"
)

// admitScript checks both windows and increments both only when both have
// capacity. Running it as a single script keeps the pair atomic across
// concurrent callers and across relay processes sharing the store.
var admitScript = redis.NewScript(`
local per_count = tonumber(redis.call('GET', KEYS[1]) or '0')
if per_count >= tonumber(ARGV[1]) then
  return {0, redis.call('PTTL', KEYS[1])}
end
local global_count = tonumber(redis.call('GET', KEYS[2]) or '0')
if global_count >= tonumber(ARGV[3]) then
  return {0, redis.call('PTTL', KEYS[2])}
end
if redis.call('INCR', KEYS[1]) == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if redis.call('INCR', KEYS[2]) == 1 then
  redis.call('PEXPIRE', KEYS[2], ARGV[4])
end
return {1, 0}
`)

// RedisStore is the shared counting store. All relay instances behind a load
// balancer point at the same Redis, so the per-source and global windows hold
// fleet-wide.
type RedisStore struct {
	client *redis.Client
	logger *logger.CanonicalLogger
}

// NewRedisStore connects to the counting store at the given URL
// (redis://host:port/db) and validates the connection with a ping.
func NewRedisStore(ctx context.Context, url string, log *logger.CanonicalLogger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log.Info("rate limit store connected", logger.String("addr", opts.Addr))

	return &RedisStore{client: client, logger: log}, nil
}

func (s *RedisStore) Admit(ctx context.Context, perKey string, perLimit Limit, globalKey string, globalLimit Limit) (Decision, error) {
	res, err := admitScript.Run(ctx, s.client,
		[]string{perKey, globalKey},
		perLimit.Count, perLimit.Window.Milliseconds(),
		globalLimit.Count, globalLimit.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit admission failed: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("unexpected admission script reply: %v", res)
	}

	if res[0] == 1 {
		return Decision{Allowed: true}, nil
	}

	// PTTL returns -1/-2 for keys without expiry or already gone; clamp so a
	// racing expiry never surfaces a negative retry hint.
	retryAfter := time.Duration(res[1]) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.WithError(err).Error("failed to close redis client")
			return err
		}
	}
	return nil
}
