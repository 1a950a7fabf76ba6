package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Limiter interface {
	// Allow counts one hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }

// RedisLimiter is a fixed-window counter: the first hit in a window creates
// the key with a TTL equal to the window, later hits increment it.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := r.Prefix + key

	count, err := r.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := r.Client.Expire(ctx, k, r.Window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}
	return count <= int64(r.Limit), nil
}

// Middleware rejects requests from a client IP that exceeded the limit.
// Limiter failures let the request through.
func Middleware(l Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ok, err := l.Allow(ctx, c.RealIP())
			if err != nil {
				logging.FromContext(ctx).Warn("rate_limit_error", "error", err)
				return next(c)
			}
			if !ok {
				c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(60))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
			}
			return next(c)
		}
	}
}
