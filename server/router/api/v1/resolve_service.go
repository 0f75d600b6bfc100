package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Drgblack/timemeaning/plugin/timeref"
	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
	"github.com/Drgblack/timemeaning/server/internal/observability"
)

// Resolve resolves one time reference.
// POST /api/v1/resolve
func (s *APIV1Service) Resolve(c echo.Context) error {
	req := &timeref.Request{}
	if err := c.Bind(req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("request body must be a JSON resolve request"))
	}
	s.withDefaultLocale(req)

	resp, err := s.Resolver.Resolve(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, apierrors.FromResolution(err))
	}
	return c.JSON(http.StatusOK, resp)
}

// ResolveBatch resolves up to timeref.MaxBatchSize references. Each item
// costs one rate-limit token.
// POST /api/v1/resolve/batch
func (s *APIV1Service) ResolveBatch(c echo.Context) error {
	req := &timeref.BatchRequest{}
	if err := c.Bind(req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("request body must be a JSON batch request"))
	}
	if n := len(req.Items); n > 0 && n <= timeref.MaxBatchSize {
		if ok, err := s.allow(c, n); !ok {
			return err
		}
	}
	for i := range req.Items {
		s.withDefaultLocale(&req.Items[i])
	}

	resp, err := s.Resolver.ResolveBatch(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, apierrors.FromResolution(err))
	}
	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.Debug("batch resolved",
			slog.Int(observability.LogFieldBatchSize, len(req.Items)),
			slog.Int("failed", resp.Failed))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) withDefaultLocale(req *timeref.Request) {
	if req.Context.Locale == "" {
		req.Context.Locale = s.Profile.DefaultLocale
	}
}
