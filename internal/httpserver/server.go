// Package httpserver serves the landing page and the operational endpoints
// next to the SSH marquee.
package httpserver

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomz197/marquee/internal/feed"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// StatusSource reports what the marquee is currently doing.
type StatusSource interface {
	Statuses() []feed.Status
	Viewers() int
}

// Options configures the server.
type Options struct {
	Addr    string
	SSHHost string // Host shown in the connect hint
	SSHPort string
	Status  StatusSource // Nil disables /status
	Metrics bool         // Serve /metrics
	Logger  *log.Logger
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Viewers int           `json:"viewers"`
	Feeds   []feed.Status `json:"feeds"`
}

// Server serves the landing page and the operational endpoints.
type Server struct {
	echo    *echo.Echo
	addr    string
	status  StatusSource
	logger  *log.Logger
	landing []byte
}

// New builds the server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var page bytes.Buffer
	err := indexTemplate.Execute(&page, struct{ SSHHost, SSHPort string }{opts.SSHHost, opts.SSHPort})
	if err != nil {
		return nil, fmt.Errorf("failed to render landing page: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(opts.Logger))

	srv := &Server{
		echo:    e,
		addr:    opts.Addr,
		status:  opts.Status,
		logger:  opts.Logger,
		landing: page.Bytes(),
	}
	srv.registerRoutes(opts.Metrics)
	return srv, nil
}

func (s *Server) registerRoutes(metrics bool) {
	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/healthz", s.handleHealth)
	if s.status != nil {
		s.echo.GET("/status", s.handleStatus)
	}
	if metrics {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, s.landing)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Viewers: s.status.Viewers(),
		Feeds:   s.status.Statuses(),
	})
}

// requestLogger logs every request through the process logger instead of
// echo's own writer.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			kv := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.Round(time.Microsecond)}
			if v.Error != nil {
				logger.Warn("HTTP request failed", append(kv, "err", v.Error)...)
				return nil
			}
			logger.Debug("HTTP request", kv...)
			return nil
		},
	})
}
