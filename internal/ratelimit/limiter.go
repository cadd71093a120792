package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// INCR and set the window on the first hit in one round trip; returns {count, ttl_ms}.
var fixedWindow = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {c, redis.call("PTTL", KEYS[1])}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a Redis fixed-window counter.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewLimiter builds a limiter. A nil client or non-positive limit admits every request.
func NewLimiter(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{rdb: rdb, limit: limit, window: window, prefix: "ratelimit"}
}

// Allow counts one hit against key.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil || l.rdb == nil || l.limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	res, err := fixedWindow.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit eval: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit eval: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	d := Decision{Allowed: count <= l.limit, Remaining: max(0, l.limit-count)}
	if !d.Allowed {
		d.RetryAfter = ttl
		if ttl <= 0 {
			d.RetryAfter = l.window
		}
	}
	return d, nil
}

// Middleware limits a route per client IP. Redis errors let the request through.
func (l *Limiter) Middleware(route string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := l.Allow(c.UserContext(), route+":"+c.IP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
			return c.Next()
		}
		if !d.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.RetryAfter.Round(time.Second).Seconds())))
			return apperrors.NewTooManyRequests("too many attempts, try again later")
		}
		return c.Next()
	}
}
