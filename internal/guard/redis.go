package guard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/redis/go-redis/v9"
)

var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter shared by every API instance.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisLimiter constructs a RedisLimiter allowing limit requests per window.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Check counts the request against the current window. Redis errors fail open.
func (l *RedisLimiter) Check(ctx context.Context, key string) domain.GuardResult {
	if l == nil || l.client == nil || l.limit <= 0 || key == "" {
		return domain.GuardResult{Allowed: true}
	}

	redisKey := l.buildKey(key, l.now())
	count, err := redisIncrScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("redis rate limit unavailable", "key", key, "error", err)
		return domain.GuardResult{Allowed: true}
	}
	if count > int64(l.limit) {
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rate limit exceeded: %d/%s", l.limit, l.window),
			Guard:   "rate_limiter",
		}
	}
	return domain.GuardResult{Allowed: true}
}

func (l *RedisLimiter) buildKey(key string, now time.Time) string {
	slot := strconv.FormatInt(now.UnixMilli()/max(l.window.Milliseconds(), 1), 10)
	if l.prefix == "" {
		return key + ":" + slot
	}
	return l.prefix + ":" + key + ":" + slot
}
