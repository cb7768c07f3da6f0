package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-booking/internal/config"
    "github.com/iliyamo/event-ticket-booking/internal/metrics"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
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

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one token bucket evaluation.
type decision struct {
    allowed   bool
    remaining int64
    retryMs   int64
}

type tokenBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    now func() time.Time
    log *logrus.Entry
}

// NewTokenBucket limits requests with a Redis-backed token bucket keyed by
// the configured strategy (ip, user, route or a combination).  When the
// limiter is disabled or Redis is unavailable the middleware passes every
// request through; a Redis error during a request fails open as well so
// seat booking keeps working without the limiter.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    tb := &tokenBucket{cfg: cfg, rdb: rdb, now: time.Now, log: logrus.WithField("component", "ratelimit")}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, err := tb.take(c.Request().Context(), key)
            if err != nil {
                if cfg.Debug {
                    tb.log.WithError(err).WithField("key", key).Warn("redis error, allowing request")
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(d.retryMs) / 1000.0))
            if secs < 0 {
                secs = 0
            }
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                tb.log.WithFields(logrus.Fields{"key": key, "retry_ms": d.retryMs}).Info("request throttled")
            }
            metrics.APIError(http.StatusTooManyRequests, "RATE_LIMITED")
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "timestamp":   tb.now().UTC().Format(time.RFC3339Nano),
                "status":      http.StatusTooManyRequests,
                "error":       http.StatusText(http.StatusTooManyRequests),
                "code":        "RATE_LIMITED",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

func (tb *tokenBucket) take(ctx context.Context, key string) (decision, error) {
    args := []interface{}{
        tb.now().UnixMilli(),
        tb.cfg.Capacity,
        tb.cfg.RefillTokens,
        tb.cfg.RefillInterval.Milliseconds(),
        int64(tb.cfg.TTL / time.Second),
    }
    vals, err := tokenBucketScript.Run(ctx, tb.rdb, []string{key}, args...).Result()
    if err != nil {
        return decision{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return decision{}, fmt.Errorf("unexpected script result %#v", vals)
    }
    return decision{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retryMs:   asInt64(arr[2]),
    }, nil
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int32:
        return int64(t)
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case float32:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// buildRateKey joins the configured key parts, e.g.
// "tb:rl:ip:10.0.0.1:user:42:route:POST /api/events/:id/holds".
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid, ok := UserID(c)
    if !ok {
        uid = "anon"
    }
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case config.KeyByIP:
        parts = append(parts, "ip", ip)
    case config.KeyByUser:
        parts = append(parts, "user", uid)
    case config.KeyByRoute:
        parts = append(parts, "route", route)
    case config.KeyByIPUser:
        parts = append(parts, "ip", ip, "user", uid)
    case config.KeyByIPRoute:
        parts = append(parts, "ip", ip, "route", route)
    case config.KeyByUserRoute:
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
