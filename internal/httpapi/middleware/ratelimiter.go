package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript is a ZREMRANGEBYSCORE/ZCARD/ZADD/EXPIRE
// sliding-window Lua script, used here as an optional per-owner
// throttle ahead of job creation rather than a public-API gate.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	return 0
end
redis.call('ZADD', key, now, now)
redis.call('EXPIRE', key, window)
return 1
`

// RateLimiter throttles create_optimization_job calls per owner using
// a Redis sliding window. Active only when OPT_REDIS_ADDR is set;
// this orchestrator's /internal surface is trusted-network/shared-
// secret gated, so this is a defensive throttle against CPU-heavy
// create calls rather than a public-API rate limit.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	script *redis.Script
}

// NewRateLimiter builds a RateLimiter against addr, allowing limit
// requests per owner per window.
func NewRateLimiter(addr string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
	}
}

// Middleware gates a route behind the sliding window, keyed by the
// owner id OwnerHeader resolved earlier in the chain.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := OwnerID(c)
		if owner == "" {
			c.Next()
			return
		}

		key := "optorch:ratelimit:" + owner
		now := float64(time.Now().UnixMilli())
		allowed, err := r.script.Run(c.Request.Context(), r.client, []string{key},
			now, r.window.Milliseconds(), r.limit).Int()
		if err != nil {
			// Redis unavailability must not block job submission.
			c.Next()
			return
		}
		if allowed == 0 {
			abortWithError(c, http.StatusTooManyRequests, "E.PARAM_INVALID", "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// Close releases the underlying Redis client.
func (r *RateLimiter) Close() error {
	return r.client.Close()
}
