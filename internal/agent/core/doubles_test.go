package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// fakeLLM scripts both language-model capabilities for tests.
type fakeLLM struct {
	extractJSON string
	extractErr  error
	generated   string
	generateErr error

	extractCalls  int32
	generateCalls int32
	lastUser      string
}

func (f *fakeLLM) ExtractStructured(ctx context.Context, system, user string, schema StructuredSchema) ([]byte, error) {
	atomic.AddInt32(&f.extractCalls, 1)
	f.lastUser = user
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return []byte(f.extractJSON), nil
}

func (f *fakeLLM) Generate(ctx context.Context, system, user string) (string, error) {
	atomic.AddInt32(&f.generateCalls, 1)
	f.lastUser = user
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generated, nil
}

// fakeTool answers edge calls by matching a substring of the query, and
// records every call it receives.
type fakeTool struct {
	mu        sync.Mutex
	responses map[string]ToolEnvelope
	fallback  ToolEnvelope
	calls     []string
	extras    []map[string]interface{}
}

func newFakeTool() *fakeTool {
	return &fakeTool{
		responses: make(map[string]ToolEnvelope),
		fallback:  ToolEnvelope{OK: true, Result: map[string]interface{}{}},
	}
}

func (f *fakeTool) respond(substr string, env ToolEnvelope) {
	f.responses[substr] = env
}

func (f *fakeTool) Call(ctx context.Context, query string, extra map[string]interface{}) ToolEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	f.extras = append(f.extras, extra)
	for substr, env := range f.responses {
		if strings.Contains(query, substr) {
			return env
		}
	}
	return f.fallback
}

func (f *fakeTool) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okArticles(urls ...string) ToolEnvelope {
	articles := make([]interface{}, 0, len(urls))
	for i, u := range urls {
		articles = append(articles, map[string]interface{}{
			"title": fmt.Sprintf("article %d", i+1),
			"url":   u,
		})
	}
	return ToolEnvelope{OK: true, Result: map[string]interface{}{"articles": articles}}
}
