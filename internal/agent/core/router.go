package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

const routerSystemPrompt = `You are an intent classifier for a news assistant.
Classify the user's request into exactly one intent:
- HEADLINES: top headlines right now
- TOPIC: news about a specific topic
- BRIEF: a synthesized multi-source briefing on a topic
- HISTORY: what happened on a date in history
- LOCAL: news near a city or the user's location
- SUMMARIZE: summarize a specific article URL
- UNKNOWN: none of the above

Also extract any of these slots when present in the request:
topic (subject of interest), city, date_iso (ISO date like 2024-05-01 or
"today"), url, max (requested number of results).
Leave a slot null when the request does not mention it.`

// routerSchema constrains the extraction call. Every slot is nullable but
// still listed under required: some provider structured-output modes reject
// schemas whose required set omits declared properties.
var routerSchema = StructuredSchema{
	Name: "intent_classification",
	Schema: json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "intent": {
      "type": "string",
      "enum": ["HEADLINES", "TOPIC", "BRIEF", "HISTORY", "LOCAL", "SUMMARIZE", "UNKNOWN"]
    },
    "topic": {"type": ["string", "null"]},
    "city": {"type": ["string", "null"]},
    "date_iso": {"type": ["string", "null"]},
    "url": {"type": ["string", "null"]},
    "max": {"type": ["integer", "null"]}
  },
  "required": ["intent", "topic", "city", "date_iso", "url", "max"]
}`),
}

// Router turns free text into a typed intent plus optional slots with a
// single structured-extraction call. It performs no retries: an extraction
// failure propagates as a run-level error.
type Router struct {
	llm    LLMProvider
	logger *log.Logger
}

func NewRouter(llm LLMProvider, logger *log.Logger) *Router {
	return &Router{llm: llm, logger: logger}
}

// Route classifies a query. A missing or unrecognized intent value falls
// back to HEADLINES; null slot values become absent.
func (r *Router) Route(ctx context.Context, query string) (Intent, Slots, error) {
	raw, err := r.llm.ExtractStructured(ctx, routerSystemPrompt, query, routerSchema)
	if err != nil {
		return "", Slots{}, fmt.Errorf("intent extraction: %w", err)
	}

	var out struct {
		Intent  *string `json:"intent"`
		Topic   *string `json:"topic"`
		City    *string `json:"city"`
		DateISO *string `json:"date_iso"`
		URL     *string `json:"url"`
		Max     *int    `json:"max"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", Slots{}, fmt.Errorf("intent extraction returned malformed JSON: %w", err)
	}

	intent := IntentHeadlines
	if out.Intent != nil {
		intent = NormalizeIntent(*out.Intent)
	}

	slots := Slots{
		Topic:   deref(out.Topic),
		City:    deref(out.City),
		DateISO: deref(out.DateISO),
		URL:     deref(out.URL),
	}
	if out.Max != nil && *out.Max > 0 {
		slots.Max = *out.Max
	}

	if r.logger != nil {
		r.logger.Printf("query %q -> intent=%s slots=%+v", truncateQuery(query), intent, slots)
	}
	return intent, slots, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func truncateQuery(q string) string {
	if len(q) > 120 {
		return q[:120] + "..."
	}
	return q
}
