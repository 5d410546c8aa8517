package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/contact-manager/internal/pkg/httputil"
	"github.com/ignite/contact-manager/internal/pkg/logger"
)

// RateLimiter provides per-client request limiting using a Redis Lua script.
// The check and increment happen in one script so concurrent requests cannot
// race past the limit between a GET and an INCR.
type RateLimiter struct {
	redis             *redis.Client
	requestsPerMinute int

	limitScript *redis.Script
}

// Lua script for atomic check-and-increment of a per-minute counter.
const limitLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")

if current + 1 > limit then
    return 0
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return 1
`

// NewRateLimiter creates a rate limiter with a pre-compiled Lua script.
func NewRateLimiter(redisClient *redis.Client, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		redis:             redisClient,
		requestsPerMinute: requestsPerMinute,
		limitScript:       redis.NewScript(limitLuaScript),
	}
}

// NewRateLimiterFromURL creates a rate limiter by connecting to Redis.
func NewRateLimiterFromURL(redisURL string, requestsPerMinute int) (*RateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRateLimiter(client, requestsPerMinute), nil
}

// Allow atomically checks and increments the counter for the given client.
func (rl *RateLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	now := time.Now()
	key := fmt.Sprintf("ratelimit:api:%s:%d", clientIP, now.Unix()/60)

	result, err := rl.limitScript.Run(ctx, rl.redis,
		[]string{key},
		rl.requestsPerMinute,
		120, // 2 minute TTL so stale buckets expire
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result == 1, nil
}

// Middleware enforces the limit on every request, keyed by remote IP
// (chi's RealIP middleware runs earlier, so RemoteAddr holds the client IP).
// Redis failures fail open: a broken limiter must not take the API down.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.Allow(r.Context(), clientIP(r))
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			httputil.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close closes the Redis connection.
func (rl *RateLimiter) Close() error {
	return rl.redis.Close()
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
