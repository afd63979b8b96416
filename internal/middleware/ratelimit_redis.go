package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter shares counters across instances. Redis failures fail open.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	log    log.FieldLogger
}

func NewRedisLimiter(client *redis.Client, logger log.FieldLogger) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		log:    logger,
	}
}

func (l *RedisLimiter) Allow(key string, limit int, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{"ratelimit:" + key}, ttl, limit).Int64()
	if err != nil {
		if l.log != nil {
			l.log.WithError(err).Warn("rate limiter unavailable, allowing request")
		}
		return true
	}
	return allowed == 1
}

// NewLimiter returns a RedisLimiter when redisURL is set and reachable,
// otherwise an in-memory limiter.
func NewLimiter(redisURL string, logger log.FieldLogger) Limiter {
	if redisURL == "" {
		return NewMemoryLimiter()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.WithError(err).Warn("invalid REDIS_URL, using in-memory rate limiter")
		return NewMemoryLimiter()
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, using in-memory rate limiter")
		client.Close()
		return NewMemoryLimiter()
	}
	return NewRedisLimiter(client, logger)
}
