package core

import (
	"context"
	"encoding/json"
	"time"
)

// Intent is the closed set of actions a query can be routed to.
type Intent string

const (
	IntentHeadlines Intent = "HEADLINES"
	IntentTopic     Intent = "TOPIC"
	IntentBrief     Intent = "BRIEF"
	IntentHistory   Intent = "HISTORY"
	IntentLocal     Intent = "LOCAL"
	IntentSummarize Intent = "SUMMARIZE"
	IntentUnknown   Intent = "UNKNOWN"
)

// DispatchIntents lists every intent that dispatch must map to a handler.
// UNKNOWN is excluded: it is normalized to HEADLINES before dispatch.
var DispatchIntents = []Intent{
	IntentHeadlines,
	IntentTopic,
	IntentBrief,
	IntentHistory,
	IntentLocal,
	IntentSummarize,
}

// NormalizeIntent maps an arbitrary classifier output onto the closed set.
// Anything unrecognized (including UNKNOWN) falls back to HEADLINES.
func NormalizeIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentHeadlines, IntentTopic, IntentBrief, IntentHistory, IntentLocal, IntentSummarize:
		return Intent(raw)
	default:
		return IntentHeadlines
	}
}

// Request is the immutable input to one orchestration run.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Slots are the optional structured fields extracted alongside the intent.
// A zero value means the slot is absent.
type Slots struct {
	Topic   string `json:"topic,omitempty"`
	City    string `json:"city,omitempty"`
	DateISO string `json:"date_iso,omitempty"`
	URL     string `json:"url,omitempty"`
	Max     int    `json:"max,omitempty"`
}

// ToolEnvelope is the uniform response shape of every edge call.
type ToolEnvelope struct {
	OK     bool                   `json:"ok"`
	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Article is the edge service's article payload. Only URL is inspected by
// the core (to chain a brief into summarization); the rest passes through.
type Article struct {
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// SourceSummary is one per-article summary produced during brief synthesis.
type SourceSummary struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// OrchestrationResult is the terminal outcome of one run: either a
// follow-up question or a final payload, never both.
type OrchestrationResult struct {
	ID             string                 `json:"id"`
	Intent         Intent                 `json:"intent"`
	NeedFollowup   bool                   `json:"need_followup,omitempty"`
	Question       string                 `json:"question,omitempty"`
	Final          map[string]interface{} `json:"final,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time,omitempty"`
}

// Followup builds a follow-up result for an intent.
func Followup(intent Intent, question string) OrchestrationResult {
	return OrchestrationResult{Intent: intent, NeedFollowup: true, Question: question}
}

// Final builds a final-payload result for an intent.
func Final(intent Intent, payload map[string]interface{}) OrchestrationResult {
	return OrchestrationResult{Intent: intent, Final: payload}
}

// ErrorFinal builds a final payload carrying a tool-level error. Handlers use
// this instead of returning a Go error so a run always completes well-formed.
func ErrorFinal(intent Intent, msg string) OrchestrationResult {
	return Final(intent, map[string]interface{}{"error": msg})
}

// ToolCaller is the resilient transport used to reach the edge service.
// It is intent-agnostic and shared by every handler.
type ToolCaller interface {
	Call(ctx context.Context, query string, extra map[string]interface{}) ToolEnvelope
}

// StructuredSchema names a JSON schema for constrained extraction.
type StructuredSchema struct {
	Name   string
	Schema json.RawMessage
}

// LLMProvider captures the two language-model capabilities the engine needs.
type LLMProvider interface {
	// ExtractStructured returns a JSON document conforming to schema for the
	// given system instruction and user text.
	ExtractStructured(ctx context.Context, system, user string, schema StructuredSchema) ([]byte, error)

	// Generate returns free-form text for a system+user prompt pair.
	Generate(ctx context.Context, system, user string) (string, error)
}

// Handler terminates a run for one intent. Implementations return a Go error
// only for failures outside their control (context cancellation, programming
// errors); tool-level failures become error final payloads.
type Handler interface {
	Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error)
}
