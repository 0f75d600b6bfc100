package v1

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Drgblack/timemeaning/server/auth"
	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
)

const (
	// keyIDContextKey holds the authenticated API key id.
	keyIDContextKey = "timemeaning.keyID"
	// outcomeContextKey holds the outcome recorded by observe.
	outcomeContextKey = "timemeaning.outcome"
)

// authenticate verifies the bearer token when an API secret is configured
// and stores the key id. Without a secret every caller is keyed by IP.
func (s *APIV1Service) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Secret == "" {
			c.Set(keyIDContextKey, "ip:"+c.RealIP())
			return next(c)
		}
		token, ok := auth.ExtractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return s.writeError(c, apierrors.Unauthorized("missing bearer token"))
		}
		claims, err := auth.ParseAPIToken(token, []byte(s.Secret))
		if err != nil {
			s.Logger.Debug("rejected API token", "error", err)
			return s.writeError(c, apierrors.Unauthorized("invalid API token"))
		}
		c.Set(keyIDContextKey, claims.Subject)
		return next(c)
	}
}

func keyID(c echo.Context) string {
	if v, ok := c.Get(keyIDContextKey).(string); ok {
		return v
	}
	return "ip:" + c.RealIP()
}

// allow spends cost rate-limit tokens for the caller, writing the 429
// envelope when the bucket is empty.
func (s *APIV1Service) allow(c echo.Context, cost int) (bool, error) {
	key := keyID(c)
	if s.rateLimiter.AllowN(key, cost) {
		return true, nil
	}
	seconds := int(math.Ceil(s.rateLimiter.RetryAfter(key).Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
	return false, s.writeError(c, apierrors.RateLimitExceeded("rate limit exceeded; retry after "+strconv.Itoa(seconds)+"s"))
}

// writeError writes the error envelope and records the outcome.
func (s *APIV1Service) writeError(c echo.Context, apiErr *apierrors.APIError) error {
	c.Set(outcomeContextKey, string(apiErr.Code))
	if apiErr.Code == apierrors.ErrCodeInternal && apiErr.Cause != nil {
		s.Logger.Error("request failed", "path", c.Path(), "error", apiErr.Cause)
	}
	return c.JSON(apiErr.Status(), apiErr.Envelope())
}
