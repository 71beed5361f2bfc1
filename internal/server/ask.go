package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/newsdesk-io/newsdesk/internal/agent/core"
)

// Processor runs one orchestration request end to end.
type Processor interface {
	Process(ctx context.Context, req core.Request) (core.OrchestrationResult, error)
}

// AskHandler exposes the orchestration engine over HTTP. A positive Timeout
// bounds each run end to end.
type AskHandler struct {
	Engine  Processor
	Logger  *log.Logger
	Timeout time.Duration
}

func (h *AskHandler) Register(g *echo.Group) {
	g.POST("/ask", h.ask)
}

type askRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *AskHandler) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	result, err := h.Engine.Process(ctx, core.Request{
		Query:     req.Query,
		SessionID: req.SessionID,
	})
	if err != nil {
		// Run-level failure outside the handlers' control (e.g. classification).
		if h.Logger != nil {
			h.Logger.Printf("run failed: %v", err)
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		})
	}

	if result.NeedFollowup {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"ok":            true,
			"need_followup": true,
			"question":      result.Question,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":     true,
		"tool":   result.Intent,
		"result": result.Final,
	})
}
