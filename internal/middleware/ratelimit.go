package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iliyamo/calendar-booking/internal/config"
)

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket limits requests per key. With Redis the bucket is shared
// by every instance; without it each process keeps its own buckets.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passthrough
	}
	if rdb == nil {
		return newLocalBucket(cfg, time.Now)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			args := []interface{}{
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}

			vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
			if err != nil {
				// Fail open; the booking path has its own consistency guard.
				log.Warn().Err(err).Str("key", key).Msg("rate limit script failed")
				return next(c)
			}
			arr, ok := vals.([]interface{})
			if !ok || len(arr) != 3 {
				log.Warn().Str("key", key).Msgf("unexpected rate limit result %#v", vals)
				return next(c)
			}
			allowed := fmt.Sprint(arr[0]) == "1"
			remaining := asInt64(arr[1])
			retry := time.Duration(asInt64(arr[2])) * time.Millisecond

			if cfg.Debug {
				c.Response().Header().Set("X-RateLimit-Key", key)
			}
			return decide(c, next, cfg.Capacity, allowed, remaining, retry)
		}
	}
}

// newLocalBucket is the in-process equivalent of the Redis script, one
// rate.Limiter per key. Idle limiters are evicted after cfg.TTL.
func newLocalBucket(cfg config.RateLimitConfig, now func() time.Time) echo.MiddlewareFunc {
	type entry struct {
		lim  *rate.Limiter
		seen time.Time
	}
	var (
		mu        sync.Mutex
		buckets   = map[string]*entry{}
		lastSweep = now()
	)
	every := rate.Every(cfg.RefillInterval / time.Duration(cfg.RefillTokens))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			t := now()

			mu.Lock()
			if t.Sub(lastSweep) > cfg.TTL {
				for k, e := range buckets {
					if t.Sub(e.seen) > cfg.TTL {
						delete(buckets, k)
					}
				}
				lastSweep = t
			}
			e, ok := buckets[key]
			if !ok {
				e = &entry{lim: rate.NewLimiter(every, cfg.Capacity)}
				buckets[key] = e
			}
			e.seen = t
			r := e.lim.ReserveN(t, 1)
			delay := r.DelayFrom(t)
			if delay > 0 {
				r.CancelAt(t)
			}
			remaining := int64(e.lim.TokensAt(t))
			mu.Unlock()

			return decide(c, next, cfg.Capacity, delay == 0, max(remaining, 0), delay)
		}
	}
}

func decide(c echo.Context, next echo.HandlerFunc, capacity int, allowed bool, remaining int64, retry time.Duration) error {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(capacity))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	if allowed {
		return next(c)
	}
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	h.Set("Retry-After", strconv.Itoa(secs))
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"error":       "too_many_requests",
		"message":     "rate limit exceeded",
		"retry_after": secs,
	})
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	sub := subjectOrAnon(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", sub)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", sub)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", sub, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", sub, "route", route)
	}
	return strings.Join(parts, ":")
}
