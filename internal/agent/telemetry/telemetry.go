package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/newsdesk-io/newsdesk/config"
)

// Telemetry tracks run and tool-call statistics for the dispatch engine.
type Telemetry struct {
	config  config.TelemetryConfig
	logger  *log.Logger
	metrics *Metrics
}

// Metrics holds aggregate counters per intent and for the edge boundary.
type Metrics struct {
	mu sync.RWMutex

	TotalRuns      int64
	FollowupRuns   int64
	AverageRunTime time.Duration

	RunsByIntent     map[string]int64
	FollowupByIntent map[string]int64

	ToolCalls        int64
	ToolCallFailures int64
	LLMCalls         int64
	LLMFailures      int64

	// Character volumes through the model, tracked only when cost tracking
	// is enabled. A cheap proxy for token spend; the chat API does not
	// return token counts on every path we use.
	LLMPromptChars int64
	LLMOutputChars int64
}

// RunEvent describes one completed orchestration run.
type RunEvent struct {
	ID             string
	Intent         string
	Followup       bool
	ProcessingTime time.Duration
}

// ToolEvent describes one logical edge call (including its retries).
type ToolEvent struct {
	Query    string
	Success  bool
	Duration time.Duration
}

// LLMEvent describes one language-model call.
type LLMEvent struct {
	Kind        string // extract or generate
	Success     bool
	Duration    time.Duration
	PromptChars int
	OutputChars int
}

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			RunsByIntent:     make(map[string]int64),
			FollowupByIntent: make(map[string]int64),
		},
	}
	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startPeriodicLogs()
	}
	return t
}

// RecordRunEvent records a completed run.
func (t *Telemetry) RecordRunEvent(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()

	t.metrics.TotalRuns++
	t.metrics.RunsByIntent[event.Intent]++
	if event.Followup {
		t.metrics.FollowupRuns++
		t.metrics.FollowupByIntent[event.Intent]++
	}

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.ProcessingTime
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.ProcessingTime) / time.Duration(t.metrics.TotalRuns)
	}

	t.logger.Printf("Run Event: ID=%s, Intent=%s, Followup=%t, Duration=%v",
		event.ID, event.Intent, event.Followup, event.ProcessingTime)
}

// RecordToolEvent records one logical edge call.
func (t *Telemetry) RecordToolEvent(ctx context.Context, event ToolEvent) {
	if !t.config.Enabled {
		return
	}

	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()

	t.metrics.ToolCalls++
	if !event.Success {
		t.metrics.ToolCallFailures++
	}
}

// RecordLLMEvent records one language-model call.
func (t *Telemetry) RecordLLMEvent(ctx context.Context, event LLMEvent) {
	if !t.config.Enabled {
		return
	}

	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()

	t.metrics.LLMCalls++
	if !event.Success {
		t.metrics.LLMFailures++
	}
	if t.config.CostTracking {
		t.metrics.LLMPromptChars += int64(event.PromptChars)
		t.metrics.LLMOutputChars += int64(event.OutputChars)
	}
}

// Snapshot returns a copy of the current aggregate metrics.
func (t *Telemetry) Snapshot() Metrics {
	t.metrics.mu.RLock()
	defer t.metrics.mu.RUnlock()

	snap := Metrics{
		TotalRuns:        t.metrics.TotalRuns,
		FollowupRuns:     t.metrics.FollowupRuns,
		AverageRunTime:   t.metrics.AverageRunTime,
		ToolCalls:        t.metrics.ToolCalls,
		ToolCallFailures: t.metrics.ToolCallFailures,
		LLMCalls:         t.metrics.LLMCalls,
		LLMFailures:      t.metrics.LLMFailures,
		LLMPromptChars:   t.metrics.LLMPromptChars,
		LLMOutputChars:   t.metrics.LLMOutputChars,
		RunsByIntent:     make(map[string]int64, len(t.metrics.RunsByIntent)),
		FollowupByIntent: make(map[string]int64, len(t.metrics.FollowupByIntent)),
	}
	for k, v := range t.metrics.RunsByIntent {
		snap.RunsByIntent[k] = v
	}
	for k, v := range t.metrics.FollowupByIntent {
		snap.FollowupByIntent[k] = v
	}
	return snap
}

func (t *Telemetry) startPeriodicLogs() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		snap := t.Snapshot()
		t.logger.Printf("Runs=%d Followups=%d AvgRunTime=%v ToolCalls=%d ToolFailures=%d LLMCalls=%d",
			snap.TotalRuns, snap.FollowupRuns, snap.AverageRunTime, snap.ToolCalls, snap.ToolCallFailures, snap.LLMCalls)
	}
}
