// Package server exposes the process's metrics and backend health over HTTP
// while the REPL runs.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/switchboard/ai/backend"
	"github.com/hrygo/switchboard/internal/version"
)

const shutdownTimeout = 5 * time.Second

// StatusSource reports backend connection states. Implemented by backend.Manager.
type StatusSource interface {
	Status() map[string]backend.State
}

// Server is the metrics and health endpoint.
type Server struct {
	echo   *echo.Echo
	addr   string
	status StatusSource
	logger *slog.Logger

	listener net.Listener
}

// BackendHealth is one entry of the /healthz payload.
type BackendHealth struct {
	ID    string        `json:"id"`
	State backend.State `json:"state"`
}

// Health is the /healthz payload.
type Health struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Backends []BackendHealth `json:"backends"`
}

// NewServer creates a server listening on addr once started. metrics may be
// nil, in which case /metrics is not registered.
func NewServer(addr string, metrics http.Handler, status StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, addr: addr, status: status, logger: logger}
	e.GET("/healthz", s.healthz)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.echo.Listener = l
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	s.logger.Info("Metrics server listening", "addr", l.Addr().String())
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown metrics server", "error", err)
	}
}

func (s *Server) healthz(c echo.Context) error {
	h := Health{Status: "ok", Version: version.String(), Backends: []BackendHealth{}}
	if s.status != nil {
		for id, st := range s.status.Status() {
			h.Backends = append(h.Backends, BackendHealth{ID: id, State: st})
		}
	}
	sort.Slice(h.Backends, func(i, j int) bool { return h.Backends[i].ID < h.Backends[j].ID })
	return c.JSON(http.StatusOK, h)
}
