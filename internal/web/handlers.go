package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/report"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/scanner"
)

var validate = validator.New()

type analyzeRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,max=20,dive,required"`
}

type analyzeResponse struct {
	JobID string `json:"job_id"`
}

// handleAnalyze starts an asynchronous analysis run and returns its job
// ID. The run itself detaches from the request context: closing the
// browser tab must not kill a half-finished report.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.StructCtx(c.Request().Context(), &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
	}

	job := s.jobs.Create(req.Codes)
	go s.runJob(job)

	s.log.Info().Str("job", job.ID).Strs("codes", req.Codes).Msg("analysis job started")
	return c.JSON(http.StatusAccepted, analyzeResponse{JobID: job.ID})
}

// runJob executes the scan and saves the report.
func (s *Server) runJob(job *Job) {
	sc := scanner.New(s.deps.Analyzer, s.opts.Workers, s.opts.RunTimeout, s.log)
	sc.SetProgressCallback(func(done, total int) {
		job.setProgress(done, total)
	})

	results, summary, err := sc.Run(context.Background(), job.Codes)
	if err != nil {
		job.finish("", fmt.Sprintf("run interrupted: %v", err))
		return
	}

	rep := report.NewReport(results, summary)
	if _, err := s.deps.Writer.Save(rep); err != nil {
		s.log.Error().Err(err).Str("job", job.ID).Msg("report save failed")
		job.finish("", fmt.Sprintf("save report: %v", err))
		return
	}
	job.finish(rep.ID, "")
}

func (s *Server) handleJob(c echo.Context) error {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, job.Snapshot())
}

var upgrader = websocket.Upgrader{
	// The API is same-host by default but the UI may be served from a
	// different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleJobSocket streams progress updates until the job finishes.
func (s *Server) handleJobSocket(c echo.Context) error {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("web: upgrade: %w", err)
	}
	defer conn.Close()

	ch := job.Subscribe()
	defer job.Unsubscribe(ch)

	for p := range ch {
		if err := conn.WriteJSON(p); err != nil {
			return nil // reader went away
		}
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

func (s *Server) handleSearch(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}
	return c.JSON(http.StatusOK, s.deps.Searcher.Search(q, 10))
}

func (s *Server) handleQuote(c echo.Context) error {
	quote, err := s.deps.Provider.GetQuote(c.Request().Context(), c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("quote unavailable: %v", err))
	}
	return c.JSON(http.StatusOK, quote)
}

func (s *Server) handleReports(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Writer.History())
}

func (s *Server) handleReport(c echo.Context) error {
	data, _, err := s.deps.Writer.Load(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	return c.HTMLBlob(http.StatusOK, data)
}

// requireJWT guards mutating endpoints with an HS256 bearer token. An
// empty secret leaves the endpoint open, which is the single-user
// localhost default.
func requireJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(strings.TrimPrefix(auth, prefix),
				func(t *jwt.Token) (interface{}, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
					}
					return []byte(secret), nil
				})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}
