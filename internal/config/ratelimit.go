package config

import "time"

// Rate limit key strategies.  The default combines all three parts.
const (
    KeyByIP        = "ip"
    KeyByUser      = "user"
    KeyByRoute     = "route"
    KeyByIPUser    = "ip_user"
    KeyByIPRoute   = "ip_route"
    KeyByUserRoute = "user_route"
    KeyByAll       = "ip_user_route"
)

// RateLimitConfig configures the Redis token bucket placed in front of the
// hold, confirm and cancel endpoints and the admin event writes.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size, i.e. the allowed burst
    RefillTokens   int           // tokens added per RefillInterval
    RefillInterval time.Duration
    TTL            time.Duration // idle bucket lifetime in Redis
    KeyStrategy    string
    Prefix         string
    Debug          bool // log throttling and expose X-RateLimit-Key
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands that override capacity and refill.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", KeyByAll),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "tb:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if burst := envInt("RATE_LIMIT_BURST", -1); burst > 0 {
        cfg.Capacity = burst
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        cfg.RefillTokens = 1
        cfg.RefillInterval = every
    }
    return cfg.normalized()
}

// normalized clamps out of range values.  A bucket must outlive at least
// five refill intervals or idle clients would regain a full burst early.
func (c RateLimitConfig) normalized() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
