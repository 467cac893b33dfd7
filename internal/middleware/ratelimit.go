package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hall-reservation/internal/config"
)

// takeToken refills the bucket for the whole intervals elapsed since the
// last refill, then tries to take one token.
//
//	KEYS[1] bucket hash
//	ARGV    now_ms, capacity, refill_tokens, interval_ms, ttl_s
//
// It returns {allowed (0|1), tokens left, ms until the next refill}.
var takeToken = redis.NewScript(`
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if not tokens or not stamp then
	tokens, stamp = capacity, now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	stamp = stamp + steps * interval
end

local allowed, wait = 0, 0
if tokens >= 1 then
	allowed, tokens = 1, tokens - 1
else
	wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {allowed, tokens, wait}
`)

type decision struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

// bucket is one rate limit configuration bound to a Redis client.
type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (decision, error) {
	vals, err := takeToken.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(vals) != 3 {
		return decision{}, fmt.Errorf("unexpected token bucket reply %v", vals)
	}
	return decision{
		allowed:   vals[0] == 1,
		remaining: vals[1],
		wait:      time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// key identifies whose budget a request spends, per cfg.KeyStrategy.
func (b bucket) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := callerKey(c)
	route := c.Request().Method + " " + c.Path()

	var parts []string
	switch strings.ToLower(b.cfg.KeyStrategy) {
	case "ip":
		parts = []string{"ip", ip}
	case "user":
		parts = []string{"user", user}
	case "ip_user":
		parts = []string{"ip", ip, "user", user}
	case "user_route":
		parts = []string{"user", user, "route", route}
	default:
		parts = []string{"ip", ip, "user", user, "route", route}
	}
	return b.cfg.Prefix + ":" + strings.Join(parts, ":")
}

// NewTokenBucket limits requests with a token bucket kept in Redis, so
// every API instance spends from the same budget.  When Redis fails the
// request goes through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := bucket{cfg: cfg, rdb: rdb}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := b.key(c)
			d, err := b.take(c.Request().Context(), key, time.Now())
			if err != nil {
				if cfg.Debug {
					logrus.WithError(err).WithField("key", key).Warn("rate limit check skipped")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if d.allowed {
				return next(c)
			}

			retry := int((d.wait + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(retry))
			if cfg.Debug {
				logrus.WithFields(logrus.Fields{"key": key, "retry_after": retry}).Info("rate limited")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many requests",
				"retry_after": retry,
			})
		}
	}
}
