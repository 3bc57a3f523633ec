package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohammad-safakhou/threader/config"
	"github.com/mohammad-safakhou/threader/internal/pipeline"
	"github.com/mohammad-safakhou/threader/internal/telemetry"
	"github.com/mohammad-safakhou/threader/models"
)

// Runner is the slice of the pipeline the handlers need.
type Runner interface {
	Run(ctx context.Context, topic string) (*models.Run, error)
}

type Server struct {
	echo   *echo.Echo
	runner Runner
	logger *log.Logger
	pages  *template.Template
}

type Options struct {
	// Metrics may be nil, in which case no metrics route is mounted.
	Metrics     *telemetry.Metrics
	MetricsPath string
	// JWTSecret, when set, guards the /api routes with HS256 bearer tokens.
	JWTSecret []byte
	Logger    *log.Logger
}

func New(runner Runner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	s := &Server{echo: echo.New(), runner: runner, logger: logger, pages: pages}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, echo.WrapHandler(opts.Metrics.Handler()))
	}

	api := e.Group("/api")
	if len(opts.JWTSecret) > 0 {
		api.Use(authMiddleware(opts.JWTSecret))
	}
	h := &ThreadsHandler{Runner: runner, Logger: logger, Pages: s.pages}
	h.Register(e, api)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.echo.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

// Run wires the pipeline from configuration and serves until SIGINT/SIGTERM.
func Run(ctx context.Context, cfg *config.Config) error {
	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New()
	}
	pipeLogger := log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	p, cleanup, err := pipeline.Build(ctx, cfg, metrics, pipeLogger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	s := New(p, Options{Metrics: metrics, MetricsPath: cfg.Telemetry.MetricsPath, JWTSecret: []byte(cfg.Server.JWTSecret)})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(cfg.Server.Address) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}
