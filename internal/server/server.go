package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newsdesk-io/newsdesk/config"
	"github.com/newsdesk-io/newsdesk/internal/agent/core"
	agenttele "github.com/newsdesk-io/newsdesk/internal/agent/telemetry"
	"github.com/newsdesk-io/newsdesk/internal/runtime"
	"github.com/newsdesk-io/newsdesk/provider"
)

// Run wires the shared dependencies and serves the HTTP front door.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.General.Debug
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
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
			_ = c.JSON(code, map[string]interface{}{"ok": false, "error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	otelShutdown, err := runtime.SetupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = otelShutdown.Shutdown(ctx) }()

	// Shared dependencies, constructed once and passed in by reference.
	tele := agenttele.NewTelemetry(cfg.Telemetry)
	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	llm = core.InstrumentLLM(llm, tele)
	edge := core.NewEdgeClient(cfg.Edge.BaseURL, cfg.Edge.Timeout, cfg.Edge.MaxRetries, tele)

	routerLogger := log.New(log.Writer(), "[ROUTER] ", log.LstdFlags)
	engineLogger := log.New(log.Writer(), "[ENGINE] ", log.LstdFlags)
	extras := core.EdgeExtras{Country: cfg.Edge.Country, Lang: cfg.Edge.Lang}

	router := core.NewRouter(llm, routerLogger)
	handlers := core.NewDefaultHandlers(edge, llm, extras, engineLogger)
	engine, err := core.NewEngine(router, handlers, engineLogger, tele)
	if err != nil {
		return err
	}

	api := e.Group("/api")
	ah := &AskHandler{Engine: engine, Logger: baseLogger, Timeout: cfg.General.DefaultTimeout}
	ah.Register(api)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":10001"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
