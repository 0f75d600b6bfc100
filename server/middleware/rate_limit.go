package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
)

// RateLimiter provides rate limiting functionality, one token bucket per key.
type RateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter
	limit  rate.Limit
	burst  int
}

// NewRateLimiter creates a rate limiter allowing perMinute requests per key
// with the given burst.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		limit:  rate.Limit(perMinute / 60),
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limits[key]
	rl.mu.RUnlock()
	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// AllowN checks if n requests are allowed for the given key. A batch costs
// one token per item.
func (rl *RateLimiter) AllowN(key string, n int) bool {
	return rl.getLimiter(key).AllowN(time.Now(), n)
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// RetryAfter estimates how long until key has a token again.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	r := rl.getLimiter(key).Reserve()
	defer r.Cancel()
	if !r.OK() {
		return time.Minute
	}
	return r.Delay()
}

// KeyFunc derives the rate-limit key from a request.
type KeyFunc func(c echo.Context) string

// Middleware rejects requests over the limit with 429 and the error envelope.
func (rl *RateLimiter) Middleware(keyFn KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFn(c)
			if rl.Allow(key) {
				return next(c)
			}
			wait := rl.RetryAfter(key)
			seconds := int(math.Ceil(wait.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			slog.Debug("rate limit exceeded", slog.String("key", key), slog.Int("retry_after", seconds))
			c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
			apiErr := apierrors.RateLimitExceeded("rate limit exceeded; retry after " + strconv.Itoa(seconds) + "s")
			return c.JSON(http.StatusTooManyRequests, apiErr.Envelope())
		}
	}
}
