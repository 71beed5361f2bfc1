package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/newsdesk-io/newsdesk/config"
	"github.com/newsdesk-io/newsdesk/internal/agent/telemetry"
)

func TestEdgeClientRetriesTransportFailureThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			// Hang past the per-attempt timeout to force a transport failure.
			time.Sleep(200 * time.Millisecond)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":     true,
			"result": map[string]interface{}{"value": "fine"},
		})
	}))
	defer srv.Close()

	c := NewEdgeClient(srv.URL, 50*time.Millisecond, 2, nil)
	env := c.Call(context.Background(), "top headlines", nil)
	if !env.OK {
		t.Fatalf("expected success after retry, got error %q", env.Error)
	}
	if env.Result["value"] != "fine" {
		t.Fatalf("unexpected result: %v", env.Result)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestEdgeClientExhaustsRetryBudgetOnTimeout(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewEdgeClient(srv.URL, 50*time.Millisecond, 2, nil)
	env := c.Call(context.Background(), "top headlines", nil)
	if env.OK {
		t.Fatalf("expected failure after exhausting retries")
	}
	if env.Error != "Edge timeout" {
		t.Fatalf("expected Edge timeout, got %q", env.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestEdgeClientDoesNotRetryApplicationFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "no such city"})
	}))
	defer srv.Close()

	c := NewEdgeClient(srv.URL, time.Second, 2, nil)
	env := c.Call(context.Background(), "local news", nil)
	if env.OK {
		t.Fatalf("expected application failure to surface")
	}
	if env.Error != "no such city" {
		t.Fatalf("unexpected error text: %q", env.Error)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("application failures must not be retried, got %d attempts", got)
	}
}

func TestEdgeClientTreatsNonJSONAsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>502 Bad Gateway</html>"))
	}))
	defer srv.Close()

	c := NewEdgeClient(srv.URL, time.Second, 2, nil)
	env := c.Call(context.Background(), "top headlines", nil)
	if env.OK {
		t.Fatalf("expected non-JSON body to fail")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("non-JSON responses must not be retried, got %d attempts", got)
	}
	if env.Error == "" || env.Error == "Edge timeout" {
		t.Fatalf("expected raw body preserved in error, got %q", env.Error)
	}
	if want := "502 Bad Gateway"; !strings.Contains(env.Error, want) {
		t.Fatalf("expected %q in error %q", want, env.Error)
	}
}

func TestEdgeClientSnippetKeepsRuneBoundary(t *testing.T) {
	// Place a multi-byte rune across the 256-byte snippet cut.
	body := strings.Repeat("x", 255) + "érror page"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewEdgeClient(srv.URL, time.Second, 0, nil)
	env := c.Call(context.Background(), "top headlines", nil)
	if env.OK {
		t.Fatalf("expected non-JSON body to fail")
	}
	if !utf8.ValidString(env.Error) {
		t.Fatalf("error text must stay valid UTF-8: %q", env.Error)
	}
	if !strings.HasSuffix(env.Error, "...") {
		t.Fatalf("expected truncation marker, got %q", env.Error)
	}
}

func TestEdgeClientRecordsToolEvents(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "no such city"})
	}))
	defer srv.Close()

	tele := telemetry.NewTelemetry(config.TelemetryConfig{Enabled: true, MetricsPort: 9090})
	c := NewEdgeClient(srv.URL, time.Second, 0, tele)
	c.Call(context.Background(), "top headlines", nil)
	c.Call(context.Background(), "local news in atlantis", nil)

	snap := tele.Snapshot()
	if snap.ToolCalls != 2 {
		t.Fatalf("expected 2 tool calls recorded, got %d", snap.ToolCalls)
	}
	if snap.ToolCallFailures != 1 {
		t.Fatalf("expected 1 tool failure recorded, got %d", snap.ToolCallFailures)
	}
}

func TestEdgeClientMergesQueryAndExtra(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{}})
	}))
	defer srv.Close()

	c := NewEdgeClient(srv.URL, time.Second, 0, nil)
	c.Call(context.Background(), "news about go", map[string]interface{}{
		"max_results": 5,
		"session_id":  "s-1",
	})
	if got["query"] != "news about go" {
		t.Fatalf("expected query in payload, got %v", got)
	}
	if got["session_id"] != "s-1" {
		t.Fatalf("expected session_id passthrough, got %v", got)
	}
	if got["max_results"] != float64(5) {
		t.Fatalf("expected max_results, got %v", got["max_results"])
	}
}
