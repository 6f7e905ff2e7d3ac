package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
)

// ErrRedisClientRequired is returned when the redis driver has no client.
var ErrRedisClientRequired = errors.New("ratelimit: redis client is required")

const defaultRedisPrefix = "ratelimit:"

// Scores are unix milliseconds. Entries at or before now-window are dropped.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisOptions configures the redis driver.
type RedisOptions struct {
	Client redis.UniversalClient
	Clock  clock.Clocker
	// Prefix namespaces the keys; defaults to "ratelimit:".
	Prefix string
}

// Redis is a Limiter whose windows live in redis sorted sets.
type Redis struct {
	client redis.UniversalClient
	clock  clock.Clocker
	prefix string
	max    int
	window int64
}

// NewRedis returns a redis-backed Limiter.
func NewRedis(cfg Config, opts RedisOptions) (*Redis, error) {
	if opts.Client == nil {
		return nil, ErrRedisClientRequired
	}

	cfg = cfg.withDefaults()

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &Redis{
		client: opts.Client,
		clock:  clk,
		prefix: prefix,
		max:    cfg.MaxRequests,
		window: cfg.Window.Milliseconds(),
	}, nil
}

// Allow runs the sliding-window script atomically on the server.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	now := r.clock.Now().UnixMilli()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := slidingWindowScript.Run(ctx, r.client,
		[]string{r.prefix + key},
		now, r.window, r.max, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis allow: %w", err)
	}

	return res == 1, nil
}

// Len counts the keys under the prefix. Redis expires idle keys on its own.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("ratelimit: redis scan: %w", err)
	}

	return n, nil
}
