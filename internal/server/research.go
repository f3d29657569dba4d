package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/agent"
	"github.com/dmsharma/researcher/internal/research"
)

// researchRunner is the slice of the orchestrator the handlers need.
type researchRunner interface {
	NewRun(ctx context.Context, query, email string) (research.Run, error)
	Process(ctx context.Context, run research.Run) research.Run
}

// ResearchHandler exposes the pipeline over HTTP.
type ResearchHandler struct {
	Cfg    *config.Config
	Runner researchRunner
	Store  agent.RunStore
	Logger *log.Logger
}

func (h *ResearchHandler) Register(g *echo.Group) {
	g.POST("/research", h.create)
	g.GET("/runs/:id", h.get)
	g.GET("/runs/:id/stream", h.stream)
	g.GET("/runs/:id/report", h.report)
}

type researchRequest struct {
	Query string `json:"query"`
	Email string `json:"email"`
}

// create accepts a research request and starts the pipeline in the
// background. The response carries the run ID for polling or streaming.
func (h *ResearchHandler) create(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Query = strings.TrimSpace(req.Query)
	req.Email = strings.TrimSpace(req.Email)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
	}

	run, err := h.Runner.NewRun(c.Request().Context(), req.Query, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	runsStarted.Inc()

	// The run outlives the request; detach from its context.
	go func() {
		final := h.Runner.Process(context.Background(), run)
		runsCompleted.WithLabelValues(string(final.Status)).Inc()
		if final.Status == research.StatusSucceeded {
			emailDeliveries.WithLabelValues(string(final.EmailStatus)).Inc()
		}
	}()

	return c.JSON(http.StatusAccepted, run)
}

func (h *ResearchHandler) get(c echo.Context) error {
	run, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// stream pushes run snapshots as server-sent events until the run
// reaches a terminal state or the client goes away.
func (h *ResearchHandler) stream(c echo.Context) error {
	if h.Cfg != nil && !h.Cfg.Server.StreamEnabled {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run stream disabled")
	}
	run, err := h.lookup(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	interval := time.Second
	if h.Cfg != nil && h.Cfg.Server.StreamInterval > 0 {
		interval = time.Duration(h.Cfg.Server.StreamInterval) * time.Second
	}
	if val := strings.TrimSpace(c.QueryParam("interval")); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			interval = time.Duration(sec) * time.Second
		}
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	send := func(run research.Run) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("event: update\n")); err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(run); err != nil {
		return nil
	}
	if run.Terminal() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			run, exists, err := h.Store.Get(ctx, run.ID)
			if err != nil || !exists {
				return nil
			}
			if err := send(run); err != nil {
				return nil
			}
			if run.Terminal() {
				return nil
			}
		}
	}
}

// report serves the finished markdown report as a download. It stays
// available even when the email delivery failed.
func (h *ResearchHandler) report(c echo.Context) error {
	run, err := h.lookup(c)
	if err != nil {
		return err
	}
	if run.Report == nil || run.Report.MarkdownReport == "" {
		return echo.NewHTTPError(http.StatusNotFound, "report not ready")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "report-"+run.ID+".md"))
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(run.Report.MarkdownReport))
}

func (h *ResearchHandler) lookup(c echo.Context) (research.Run, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return research.Run{}, echo.NewHTTPError(http.StatusBadRequest, "run id required")
	}
	run, ok, err := h.Store.Get(c.Request().Context(), id)
	if err != nil {
		return research.Run{}, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return research.Run{}, echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return run, nil
}
