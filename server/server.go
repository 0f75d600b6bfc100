package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/internal/version"
	"github.com/Drgblack/timemeaning/plugin/timeref"
	apiv1 "github.com/Drgblack/timemeaning/server/router/api/v1"
	"github.com/Drgblack/timemeaning/server/runner/purge"
	"github.com/Drgblack/timemeaning/store"
)

// purgeInterval is how often expired share rows are deleted in the background.
const purgeInterval = time.Hour

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Engine  *timeref.Engine

	echoServer *echo.Echo
	httpServer *http.Server
	cancel     context.CancelFunc
}

// NewServer wires the HTTP API around engine. store may be nil, which
// disables share links.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, engine *timeref.Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	s := &Server{
		Profile: profile,
		Store:   store,
		Engine:  engine,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.RequestID())
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.BodyLimit("1M"))
	s.echoServer = echoServer

	echoServer.GET("/healthz", s.healthz)

	apiV1Service := apiv1.NewAPIV1Service(profile, store, engine, engine.KnowledgeBase())
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	if s.Store != nil {
		go purge.NewRunner(s.Store, purgeInterval).Run(ctx)
	}

	s.httpServer = &http.Server{
		Handler:           s.echoServer,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start HTTP server", "error", err)
		}
	}()
	slog.Info("start HTTP server", "address", address, "version", version.GetCurrentVersion(s.Profile.Mode))
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			slog.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
	slog.Info("server stopped properly")
}

type healthResponse struct {
	Status               string `json:"status"`
	Version              string `json:"version"`
	KnowledgeBaseVersion string `json:"knowledgeBaseVersion"`
	Database             string `json:"database,omitempty"`
}

func (s *Server) healthz(c echo.Context) error {
	resp := healthResponse{
		Status:               "ok",
		Version:              version.GetCurrentVersion(s.Profile.Mode),
		KnowledgeBaseVersion: s.Engine.KnowledgeBase().Version(),
	}
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp.Database = "ok"
	}
	return c.JSON(http.StatusOK, resp)
}
