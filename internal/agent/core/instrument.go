package core

import (
	"context"
	"time"

	"github.com/newsdesk-io/newsdesk/internal/agent/telemetry"
)

// InstrumentLLM wraps a provider so every extraction and generation call is
// recorded as a telemetry event. With a nil recorder the provider is returned
// untouched.
func InstrumentLLM(p LLMProvider, tele *telemetry.Telemetry) LLMProvider {
	if tele == nil {
		return p
	}
	return &measuredLLM{inner: p, tele: tele}
}

type measuredLLM struct {
	inner LLMProvider
	tele  *telemetry.Telemetry
}

func (m *measuredLLM) ExtractStructured(ctx context.Context, system, user string, schema StructuredSchema) ([]byte, error) {
	start := time.Now()
	out, err := m.inner.ExtractStructured(ctx, system, user, schema)
	m.tele.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Kind:        "extract",
		Success:     err == nil,
		Duration:    time.Since(start),
		PromptChars: len(system) + len(user),
		OutputChars: len(out),
	})
	return out, err
}

func (m *measuredLLM) Generate(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	text, err := m.inner.Generate(ctx, system, user)
	m.tele.RecordLLMEvent(ctx, telemetry.LLMEvent{
		Kind:        "generate",
		Success:     err == nil,
		Duration:    time.Since(start),
		PromptChars: len(system) + len(user),
		OutputChars: len(text),
	})
	return text, err
}
