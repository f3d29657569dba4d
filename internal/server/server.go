package server

import (
	"context"
	"embed"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/agent"
	"github.com/dmsharma/researcher/internal/agent/telemetry"
	"github.com/dmsharma/researcher/internal/mail"
	"github.com/dmsharma/researcher/internal/runs"
	"github.com/dmsharma/researcher/tools/webfetch"
	"github.com/dmsharma/researcher/tools/websearch"
)

//go:embed ui/index.html
var uiFS embed.FS

// Run wires the full pipeline from config and serves the HTTP API.
func Run(cfg *config.Config, addr string) error {
	e := newEcho()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/", func(c echo.Context) error {
		page, err := uiFS.ReadFile("ui/index.html")
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "ui unavailable")
		}
		return c.HTMLBlob(http.StatusOK, page)
	})

	orch, store, tele, err := NewPipeline(cfg)
	if err != nil {
		return err
	}

	h := &ResearchHandler{
		Cfg:    cfg,
		Runner: orch,
		Store:  store,
		Logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
	h.Register(e.Group("/api"))

	e.GET("/api/telemetry", func(c echo.Context) error {
		return c.JSON(http.StatusOK, tele.GetSnapshot())
	})

	if addr == "" {
		addr = cfg.Server.Address
		if addr == "" {
			addr = ":10010"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// NewPipeline builds the orchestrator and its dependencies from config.
// Shared by the HTTP server and the one-shot CLI runner.
func NewPipeline(cfg *config.Config) (*agent.Orchestrator, runs.Store, *telemetry.Telemetry, error) {
	llm, err := agent.NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("llm provider: %w", err)
	}

	searcher, err := websearch.NewSearcher(
		websearch.Provider(cfg.Search.Provider), searchAPIKey(cfg), cfg.Search.Timeout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("web search: %w", err)
	}

	// The fetcher is only built when search enrichment is on.
	var fetcher webfetch.Fetcher
	if cfg.Pipeline.FetchTopResults > 0 {
		fetcher, err = webfetch.NewFetcher(
			webfetch.FetcherType(cfg.Fetch.Fetcher), cfg.Fetch.Timeout, cfg.Fetch.MaxChars)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("web fetch: %w", err)
		}
	}

	store, err := runs.NewStore(context.Background(), cfg.Runs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("run store: %w", err)
	}

	sender := mail.NewSendGridSender(cfg.Email)
	tele := telemetry.New()
	orch := agent.NewOrchestrator(cfg, llm, searcher, fetcher, sender, store, tele)
	return orch, store, tele, nil
}

// newEcho builds the echo instance with recovery, CORS and a unified
// JSON error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))
	return e
}

func searchAPIKey(cfg *config.Config) string {
	switch websearch.Provider(cfg.Search.Provider) {
	case websearch.BraveProvider:
		return cfg.Search.BraveAPIKey
	default:
		return cfg.Search.SerperAPIKey
	}
}
