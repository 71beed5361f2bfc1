package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsdesk-io/newsdesk/internal/agent/telemetry"
)

var engineTracer trace.Tracer = otel.Tracer("newsdesk/internal/agent/core")

// Engine wires the router to exactly one handler per run. It holds no retry
// or timeout logic; all resilience lives in the tool client.
type Engine struct {
	router    *Router
	handlers  map[Intent]Handler
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

// NewEngine builds the dispatch engine and verifies the intent->handler
// mapping is total, so a forgotten handler fails at startup instead of
// falling back silently at runtime.
func NewEngine(router *Router, handlers map[Intent]Handler, logger *log.Logger, tele *telemetry.Telemetry) (*Engine, error) {
	if router == nil {
		return nil, fmt.Errorf("engine requires a router")
	}
	for _, intent := range DispatchIntents {
		if _, ok := handlers[intent]; !ok {
			return nil, fmt.Errorf("no handler registered for intent %s", intent)
		}
	}
	return &Engine{router: router, handlers: handlers, logger: logger, telemetry: tele}, nil
}

// NewDefaultHandlers builds the standard handler set over one tool client and
// one LLM provider.
func NewDefaultHandlers(tools ToolCaller, llm LLMProvider, extras EdgeExtras, logger *log.Logger) map[Intent]Handler {
	return map[Intent]Handler{
		IntentHeadlines: &HeadlinesHandler{Tools: tools, Extras: extras},
		IntentTopic:     &TopicHandler{Tools: tools, Extras: extras},
		IntentBrief:     &BriefHandler{Tools: tools, LLM: llm, Extras: extras, Logger: logger},
		IntentHistory:   &HistoryHandler{Tools: tools, Extras: extras},
		IntentLocal:     &LocalHandler{Tools: tools, Extras: extras},
		IntentSummarize: &SummarizeHandler{Tools: tools, Extras: extras},
	}
}

// Process runs one request end to end: route, dispatch, terminate. Only
// routing failures and programming errors surface as Go errors; everything a
// handler controls becomes a well-formed result.
func (e *Engine) Process(ctx context.Context, req Request) (OrchestrationResult, error) {
	start := time.Now()
	ctx, span := engineTracer.Start(ctx, "engine.process",
		trace.WithAttributes(attribute.String("run.query", truncateQuery(req.Query))))
	defer span.End()

	intent, slots, err := e.router.Route(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OrchestrationResult{}, err
	}
	span.SetAttributes(attribute.String("run.intent", string(intent)))

	handler, ok := e.handlers[intent]
	if !ok {
		// Unreachable given the construction-time totality check.
		err := fmt.Errorf("no handler for intent %s", intent)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OrchestrationResult{}, err
	}

	result, err := handler.Handle(ctx, req, slots)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OrchestrationResult{}, err
	}

	result.ID = uuid.NewString()
	result.Intent = intent
	result.ProcessingTime = time.Since(start)

	recordRun(ctx, intent, result.NeedFollowup, result.ProcessingTime)
	if e.telemetry != nil {
		e.telemetry.RecordRunEvent(ctx, telemetry.RunEvent{
			ID:             result.ID,
			Intent:         string(intent),
			Followup:       result.NeedFollowup,
			ProcessingTime: result.ProcessingTime,
		})
	}
	if e.logger != nil {
		e.logger.Printf("run %s intent=%s followup=%t took=%v", result.ID, intent, result.NeedFollowup, result.ProcessingTime)
	}
	return result, nil
}
