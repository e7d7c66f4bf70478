package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultKeyPrefix namespaces the sorted sets written by RedisLimiter.
const DefaultKeyPrefix = "wikisum:ratelimit:"

// slidingWindowScript prunes, counts and conditionally records one request
// atomically. Scores are unix milliseconds.
//
// KEYS[1] window key
// ARGV[1] now, ARGV[2] window size, ARGV[3] limit, ARGV[4] unique member
// Returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local size = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - size)
local count = redis.call('ZCARD', key)

if count >= limit then
	local retry = size
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + size - now
	end
	return {0, 0, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, size)
return {1, limit - count - 1, 0}
`)

// RedisConfig holds the Redis-backed limiter configuration.
type RedisConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration

	// KeyPrefix is prepended to the identity to form the sorted set key
	KeyPrefix string

	// FailOpen admits requests when Redis cannot be reached instead of
	// returning the error
	FailOpen bool

	// Now overrides the clock (for testing)
	Now func() time.Time
}

// RedisLimiter is a sliding-window limiter whose windows live in Redis.
// Idle windows expire with their keys.
type RedisLimiter struct {
	redis  *redis.Client
	config RedisConfig
	logger zerolog.Logger
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(redisClient *redis.Client, cfg RedisConfig, logger zerolog.Logger) *RedisLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RedisLimiter{
		redis:  redisClient,
		config: cfg,
		logger: logger,
	}
}

// Allow checks whether identity may make a request now and records it if so.
func (r *RedisLimiter) Allow(ctx context.Context, identity string) (Decision, error) {
	if !r.config.Enabled {
		return Decision{Allowed: true, Remaining: r.config.Limit}, nil
	}

	now := r.config.Now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, r.redis,
		[]string{r.key(identity)},
		now,
		r.config.Window.Milliseconds(),
		r.config.Limit,
		uuid.NewString(),
	).Slice()
	if err != nil {
		// A caller that gave up is not a backend outage.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		return r.backendError(identity, fmt.Errorf("run sliding window script: %w", err))
	}

	decision, err := parseScriptResult(res)
	if err != nil {
		return r.backendError(identity, err)
	}

	recordDecision("redis", decision)
	if !decision.Allowed {
		r.logger.Warn().
			Str("identity", identity).
			Int("limit", r.config.Limit).
			Dur("retry_after", decision.RetryAfter).
			Msg("Rate limit exceeded")
	}
	return decision, nil
}

// Reset forgets all recorded requests for identity.
func (r *RedisLimiter) Reset(ctx context.Context, identity string) error {
	if err := r.redis.Del(ctx, r.key(identity)).Err(); err != nil {
		return fmt.Errorf("delete rate limit window: %w", err)
	}
	return nil
}

func (r *RedisLimiter) key(identity string) string {
	return r.config.KeyPrefix + identity
}

func (r *RedisLimiter) backendError(identity string, err error) (Decision, error) {
	RateLimitBackendErrors.Inc()
	if r.config.FailOpen {
		r.logger.Warn().Err(err).Str("identity", identity).Msg("Rate limit backend unavailable, admitting request")
		return Decision{Allowed: true, Remaining: r.config.Limit}, nil
	}
	return Decision{}, err
}

func parseScriptResult(res []interface{}) (Decision, error) {
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected script result length %d", len(res))
	}
	values := make([]int64, len(res))
	for i, v := range res {
		n, ok := v.(int64)
		if !ok {
			return Decision{}, fmt.Errorf("unexpected script result type %T at %d", v, i)
		}
		values[i] = n
	}
	return Decision{
		Allowed:    values[0] == 1,
		Remaining:  int(values[1]),
		RetryAfter: time.Duration(values[2]) * time.Millisecond,
	}, nil
}
