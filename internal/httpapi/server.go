// Package httpapi exposes the intake and status-query endpoints. Both paths
// are strictly non-blocking with respect to evaluation: submit only inserts a
// pending row, query only reads.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/resumecheck/resumecheck/internal/store"
)

// DefaultProfile is used when a submission does not name a profile. The
// service has no authentication layer; profiles just namespace stored base
// resumes.
const DefaultProfile = "default"

type Server struct {
	echo   *echo.Echo
	store  store.Store
	logger *zap.Logger
}

func NewServer(s store.Store, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:   e,
		store:  s,
		logger: logger,
	}

	e.POST("/api/checks", srv.submitCheck)
	e.GET("/api/checks/:id", srv.getCheck)
	e.PUT("/api/profile/resume", srv.putBaseResume)
	e.GET("/api/profile/resume", srv.getBaseResume)
	e.GET("/healthz", srv.health)

	return srv
}

// Handler exposes the routing tree, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("http api listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
