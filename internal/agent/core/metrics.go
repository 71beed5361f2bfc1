package core

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	coreMetricsOnce  sync.Once
	runsTotal        otelmetric.Int64Counter
	followupsTotal   otelmetric.Int64Counter
	runDuration      otelmetric.Float64Histogram
	toolAttempts     otelmetric.Int64Counter
	toolFailures     otelmetric.Int64Counter
	briefSourcesUsed otelmetric.Int64Counter
)

func initCoreMetrics() {
	meter := otel.Meter("newsdesk/agent/core")
	var err error
	runsTotal, err = meter.Int64Counter(
		"newsdesk_runs_total",
		otelmetric.WithDescription("Orchestration runs completed, labeled by intent"),
	)
	if err != nil {
		log.Printf("core metrics init: newsdesk_runs_total: %v", err)
	}
	followupsTotal, err = meter.Int64Counter(
		"newsdesk_followups_total",
		otelmetric.WithDescription("Runs that terminated in a clarification question"),
	)
	if err != nil {
		log.Printf("core metrics init: newsdesk_followups_total: %v", err)
	}
	runDuration, err = meter.Float64Histogram(
		"newsdesk_run_duration_seconds",
		otelmetric.WithDescription("End-to-end orchestration run duration"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		log.Printf("core metrics init: newsdesk_run_duration_seconds: %v", err)
	}
	toolAttempts, err = meter.Int64Counter(
		"newsdesk_tool_call_attempts_total",
		otelmetric.WithDescription("Individual edge call attempts, including retries"),
	)
	if err != nil {
		log.Printf("core metrics init: newsdesk_tool_call_attempts_total: %v", err)
	}
	toolFailures, err = meter.Int64Counter(
		"newsdesk_tool_call_failures_total",
		otelmetric.WithDescription("Edge calls that ended in failure, labeled by kind"),
	)
	if err != nil {
		log.Printf("core metrics init: newsdesk_tool_call_failures_total: %v", err)
	}
	briefSourcesUsed, err = meter.Int64Counter(
		"newsdesk_brief_sources_total",
		otelmetric.WithDescription("Source summaries that survived brief fan-out"),
	)
	if err != nil {
		log.Printf("core metrics init: newsdesk_brief_sources_total: %v", err)
	}
}

func recordRun(ctx context.Context, intent Intent, followup bool, d time.Duration) {
	coreMetricsOnce.Do(initCoreMetrics)
	attrs := otelmetric.WithAttributes(attribute.String("intent", string(intent)))
	if runsTotal != nil {
		runsTotal.Add(ctx, 1, attrs)
	}
	if followup && followupsTotal != nil {
		followupsTotal.Add(ctx, 1, attrs)
	}
	if runDuration != nil {
		runDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func recordToolAttempt(ctx context.Context) {
	coreMetricsOnce.Do(initCoreMetrics)
	if toolAttempts != nil {
		toolAttempts.Add(ctx, 1)
	}
}

func recordToolFailure(ctx context.Context, kind string) {
	coreMetricsOnce.Do(initCoreMetrics)
	if toolFailures != nil {
		toolFailures.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("kind", kind)))
	}
}

func recordBriefSources(ctx context.Context, n int) {
	coreMetricsOnce.Do(initCoreMetrics)
	if briefSourcesUsed != nil && n > 0 {
		briefSourcesUsed.Add(ctx, int64(n))
	}
}
