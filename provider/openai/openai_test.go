package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newsdesk-io/newsdesk/config"
	"github.com/newsdesk-io/newsdesk/internal/agent/core"
)

func newFakeOpenAI(t *testing.T, content string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": content}},
			},
		})
	}))
}

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:        "openai",
		APIKey:          "test-key",
		BaseURL:         baseURL,
		CompletionModel: "gpt-4o-mini",
		Temperature:     0.2,
	}
}

func TestExtractStructuredSendsSchemaFormat(t *testing.T) {
	var got map[string]interface{}
	srv := newFakeOpenAI(t, `{"intent":"TOPIC"}`, &got)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	out, err := c.ExtractStructured(context.Background(), "classify", "news about go", core.StructuredSchema{
		Name:   "intent_classification",
		Schema: json.RawMessage(`{"type":"object"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"intent":"TOPIC"}` {
		t.Fatalf("unexpected extraction output: %s", out)
	}

	format, ok := got["response_format"].(map[string]interface{})
	if !ok || format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", got["response_format"])
	}
	spec := format["json_schema"].(map[string]interface{})
	if spec["name"] != "intent_classification" || spec["strict"] != true {
		t.Fatalf("unexpected schema spec: %v", spec)
	}
}

func TestExtractStructuredRejectsInvalidJSON(t *testing.T) {
	srv := newFakeOpenAI(t, "sorry, I cannot", nil)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.ExtractStructured(context.Background(), "classify", "x", core.StructuredSchema{
		Name:   "s",
		Schema: json.RawMessage(`{"type":"object"}`),
	}); err == nil {
		t.Fatalf("expected invalid JSON to be rejected")
	}
}

func TestGenerateReturnsContent(t *testing.T) {
	var got map[string]interface{}
	srv := newFakeOpenAI(t, "a fine briefing", &got)
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	out, err := c.Generate(context.Background(), "write a brief", "topic: chips")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a fine briefing" {
		t.Fatalf("unexpected generation output: %q", out)
	}
	if _, hasFormat := got["response_format"]; hasFormat {
		t.Fatalf("free-text generation must not constrain output: %v", got)
	}
	msgs := got["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %v", msgs)
	}
}

func TestMissingAPIKeyFailsFast(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := testConfig("http://unused")
	cfg.APIKey = ""
	c := NewClient(cfg)
	if _, err := c.Generate(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected missing API key error")
	}
}
