// Package web serves the HTTP API and the embedded single-page UI.
// Analysis runs are asynchronous: POST /api/analyze returns a job ID,
// progress streams over a websocket or polls through the job endpoint,
// and the finished run lands in the report history.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/provider"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/report"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/search"
)

//go:embed static
var staticFS embed.FS

// Options configure the server.
type Options struct {
	Addr        string
	JWTSecret   string        // empty disables auth on mutating endpoints
	Workers     int           // analysis concurrency per job
	RunTimeout  time.Duration // per-job deadline
	JobTTL      time.Duration // how long finished jobs stay queryable
	ReadTimeout time.Duration
}

// Deps are the server's collaborators.
type Deps struct {
	Analyzer *analyzer.Analyzer
	Provider provider.Provider
	Searcher *search.Searcher
	Writer   *report.Writer
}

// Server is the echo-based HTTP front end.
type Server struct {
	echo *echo.Echo
	opts Options
	deps Deps
	jobs *jobStore
	log  zerolog.Logger
}

// New builds the server and mounts every route.
func New(deps Deps, opts Options, log zerolog.Logger) (*Server, error) {
	if deps.Analyzer == nil || deps.Provider == nil || deps.Searcher == nil || deps.Writer == nil {
		return nil, errors.New("web: analyzer, provider, searcher and writer are required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogging(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s := &Server{
		echo: e,
		opts: opts,
		deps: deps,
		jobs: newJobStore(opts.JobTTL),
		log:  log,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo

	static, err := fs.Sub(staticFS, "static")
	if err == nil {
		e.GET("/", echo.WrapHandler(http.FileServer(http.FS(static))))
	}

	api := e.Group("/api")
	api.POST("/analyze", s.handleAnalyze, requireJWT(s.opts.JWTSecret))
	api.GET("/jobs/:id", s.handleJob)
	api.GET("/search", s.handleSearch)
	api.GET("/quote/:code", s.handleQuote)
	api.GET("/reports", s.handleReports)
	api.GET("/reports/:id", s.handleReport)

	e.GET("/ws/jobs/:id", s.handleJobSocket)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Start runs the server until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.opts.Addr).Msg("web server listening")
		if err := s.echo.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	s.log.Info().Msg("web server stopped")
	return nil
}

// requestLogging logs one line per request in the access-log shape.
func requestLogging(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			log.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("elapsed", time.Since(started)).
				Msg("request")
			return err
		}
	}
}
