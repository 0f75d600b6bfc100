package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
	"github.com/Drgblack/timemeaning/server/internal/observability"
)

// observe attaches a request context to the request, then logs and records
// the outcome. Input text is never logged.
func (s *APIV1Service) observe(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			rc := observability.NewRequestContextWithID(s.Logger, requestID, endpoint, "")
			req := c.Request()
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			outcome := outcomeOf(c, status)
			s.Metrics.Record(endpoint, outcome, rc.Duration())

			rc.KeyID = keyIDIfSet(c)
			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
			}
			if outcome != observability.OutcomeResolved {
				attrs = append(attrs, slog.String(observability.LogFieldErrorCode, outcome))
			}
			if status >= http.StatusInternalServerError {
				rc.Warn("request completed", attrs...)
			} else {
				rc.Debug("request completed", attrs...)
			}
			return nil
		}
	}
}

func outcomeOf(c echo.Context, status int) string {
	if v, ok := c.Get(outcomeContextKey).(string); ok && v != "" {
		return v
	}
	switch {
	case status == http.StatusTooManyRequests:
		return string(apierrors.ErrCodeRateLimitExceeded)
	case status == http.StatusNotFound:
		return string(apierrors.ErrCodeNotFound)
	case status >= http.StatusInternalServerError:
		return string(apierrors.ErrCodeInternal)
	case status >= http.StatusBadRequest:
		return string(apierrors.ErrCodeInvalidInput)
	}
	return observability.OutcomeResolved
}

func keyIDIfSet(c echo.Context) string {
	if v, ok := c.Get(keyIDContextKey).(string); ok {
		return v
	}
	return ""
}
