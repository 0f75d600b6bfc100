package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/plugin/timeref"
	"github.com/Drgblack/timemeaning/server/internal/observability"
	ratelimit "github.com/Drgblack/timemeaning/server/middleware"
	"github.com/Drgblack/timemeaning/server/timezone"
	"github.com/Drgblack/timemeaning/store"
)

type APIV1Service struct {
	Secret        string
	Profile       *profile.Profile
	Store         *store.Store
	Resolver      timeref.Service
	KnowledgeBase *timezone.KnowledgeBase
	Metrics       *observability.Metrics
	Logger        *slog.Logger

	rateLimiter *ratelimit.RateLimiter
	// ogSemaphore limits concurrent preview-card rendering.
	ogSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, resolver timeref.Service, kb *timezone.KnowledgeBase) *APIV1Service {
	concurrency := profile.OGConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &APIV1Service{
		Secret:        profile.APISecret,
		Profile:       profile,
		Store:         store,
		Resolver:      resolver,
		KnowledgeBase: kb,
		Metrics:       observability.GlobalMetrics(),
		Logger:        slog.Default(),
		rateLimiter:   ratelimit.NewRateLimiter(profile.RateLimitPerMinute, profile.RateLimitBurst),
		ogSemaphore:   semaphore.NewWeighted(concurrency),
	}
}

// RegisterRoutes mounts the v1 API and the public share page on echoServer.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	api := echoServer.Group("/api/v1", middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	// observe is outermost so rejected requests are still logged and counted.
	limit := s.rateLimiter.Middleware(keyID)
	api.POST("/resolve", s.Resolve, s.observe("resolve"), s.authenticate, limit)
	api.POST("/resolve/batch", s.ResolveBatch, s.observe("resolve_batch"), s.authenticate)
	api.POST("/shares", s.CreateShare, s.observe("share_create"), s.authenticate, limit)
	api.GET("/shares/:id", s.GetShare, s.observe("share_get"))
	api.GET("/shares/:id/og.png", s.GetShareImage, s.observe("share_og"))
	api.GET("/timezones/abbreviations", s.ListAbbreviations, s.observe("abbreviations"))
	api.GET("/timezones/abbreviations/:abbr", s.GetAbbreviation, s.observe("abbreviation"))
	api.GET("/system/metrics/overview", s.GetMetricsOverview, s.authenticate)

	echoServer.GET("/s/:id", s.GetSharePage, s.observe("share_page"))
}
