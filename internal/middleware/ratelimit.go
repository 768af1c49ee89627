package middleware

import (
	"fmt"
	"os"
	"time"

	"socialcomments/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy controls what happens to a request when the rate limit store
// (Redis) is unreachable.
type FailPolicy int

const (
	// FailOpen lets the request through when the store is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request with 503 when the store is unavailable.
	FailClosed
)

// allowAction records one hit against the (action, caller) counter and
// reports whether the caller is still under the limit. Counters live in Redis
// with the window as TTL. Limiting is off outside production-like
// environments so dev and load-test workflows are not throttled.
func allowAction(c *fiber.Ctx, rdb *redis.Client, action, caller string, limit int, window time.Duration) (bool, error) {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true, nil
	}

	if rdb == nil {
		return false, fmt.Errorf("rate limit store not configured")
	}

	ctx := c.UserContext()
	key := fmt.Sprintf("ratelimit:%s:%s", action, caller)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit enforces `limit` requests per `window` for a write action, keyed
// by the authenticated user when present, otherwise by client IP. Store
// outages fail open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, action ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, action...)
}

// RateLimitWithPolicy is RateLimit with an explicit store-outage policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, action ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			caller = fmt.Sprintf("user:%d", uid)
		}

		name := c.Path()
		if len(action) > 0 {
			name = action[0]
		}

		allowed, err := allowAction(c, rdb, name, caller, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					"action", name, "error", err)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewRateLimitError("Rate limiting unavailable, try again later"))
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing open",
				"action", name, "error", err)
			return c.Next()
		}

		if !allowed {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitError("Too many requests, please slow down"))
		}
		return c.Next()
	}
}
