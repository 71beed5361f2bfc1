package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsdesk-io/newsdesk/internal/agent/telemetry"
)

var toolTracer trace.Tracer = otel.Tracer("newsdesk/internal/agent/core/tool")

// EdgeClient calls the external tool-execution service. Every logical call is
// a single POST of {query, ...extra}; transport failures are retried
// immediately up to the retry budget, application failures are not.
type EdgeClient struct {
	baseURL string
	client  *http.Client
	retries int
	logger  *log.Logger
	tele    *telemetry.Telemetry
}

// NewEdgeClient creates an edge client with a per-attempt timeout and a fixed
// number of additional attempts after the first. tele may be nil.
func NewEdgeClient(baseURL string, timeout time.Duration, retries int, tele *telemetry.Telemetry) *EdgeClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &EdgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		logger:  log.New(os.Stdout, "[EDGE] ", log.LstdFlags),
		tele:    tele,
	}
}

// Call executes one logical edge call and always returns a well-formed
// envelope; transport errors after the retry budget surface as ok=false.
func (c *EdgeClient) Call(ctx context.Context, query string, extra map[string]interface{}) ToolEnvelope {
	start := time.Now()
	env := c.call(ctx, query, extra)
	if c.tele != nil {
		c.tele.RecordToolEvent(ctx, telemetry.ToolEvent{
			Query:    query,
			Success:  env.OK,
			Duration: time.Since(start),
		})
	}
	return env
}

func (c *EdgeClient) call(ctx context.Context, query string, extra map[string]interface{}) ToolEnvelope {
	ctx, span := toolTracer.Start(ctx, "tool.call",
		trace.WithAttributes(attribute.String("tool.query", query)))
	defer span.End()

	payload := make(map[string]interface{}, len(extra)+1)
	for k, v := range extra {
		payload[k] = v
	}
	payload["query"] = query

	body, err := json.Marshal(payload)
	if err != nil {
		return ToolEnvelope{OK: false, Error: "marshal request: " + err.Error()}
	}

	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		recordToolAttempt(ctx)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
		if err != nil {
			return ToolEnvelope{OK: false, Error: err.Error()}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Printf("attempt %d/%d failed: %v", attempt+1, tries, err)
			continue
		}

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			c.logger.Printf("attempt %d/%d read failed: %v", attempt+1, tries, readErr)
			continue
		}

		var env ToolEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Non-JSON body is a terminal failure, preserved for diagnostics.
			recordToolFailure(ctx, "bad_payload")
			return ToolEnvelope{OK: false, Error: "edge returned non-JSON response: " + snippet(raw)}
		}
		if !env.OK && env.Error == "" {
			env.Error = "edge reported failure without detail"
		}
		if !env.OK {
			recordToolFailure(ctx, "application")
		}
		return env
	}

	recordToolFailure(ctx, "transport")
	return ToolEnvelope{OK: false, Error: transportErrorText(lastErr)}
}

// transportErrorText keeps the well-known timeout message stable for callers
// and falls back to the underlying error text otherwise.
func transportErrorText(err error) string {
	if err == nil {
		return "edge call failed"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Edge timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Edge timeout"
	}
	return err.Error()
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 256 {
		s = truncate(s, 256) + "..."
	}
	return s
}

// truncate cuts s to at most max bytes, backing up so a multi-byte rune is
// never split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
