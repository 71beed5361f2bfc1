package config

import "testing"

func TestEdgeConfigValidate(t *testing.T) {
	if err := (EdgeConfig{}).Validate(); err == nil {
		t.Fatalf("expected missing base_url to fail validation")
	}
	if err := (EdgeConfig{BaseURL: "http://edge:8080", MaxRetries: -1}).Validate(); err == nil {
		t.Fatalf("expected negative max_retries to fail validation")
	}
	if err := (EdgeConfig{BaseURL: "http://edge:8080", MaxRetries: 2}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestTelemetryConfigValidate(t *testing.T) {
	if err := (TelemetryConfig{Enabled: true}).Validate(); err == nil {
		t.Fatalf("expected enabled telemetry without metrics port to fail")
	}
	if err := (TelemetryConfig{Enabled: false}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLLMConfigValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if err := (LLMConfig{CompletionModel: "gpt-4o-mini"}).Validate(); err == nil {
		t.Fatalf("expected missing api key to fail validation")
	}
	if err := (LLMConfig{APIKey: "k"}).Validate(); err == nil {
		t.Fatalf("expected missing model to fail validation")
	}
	if err := (LLMConfig{APIKey: "k", CompletionModel: "gpt-4o-mini"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
