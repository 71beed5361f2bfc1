package core

import (
	"context"
	"fmt"
)

// Clarification questions returned when a required slot is missing.
const (
	QuestionTopic = "Which topic?"
	QuestionBrief = "Which topic should the brief cover?"
	QuestionURL   = "Which article URL should I summarize?"
)

const defaultMaxResults = 10

// EdgeExtras carries optional locale fields attached to every edge call.
type EdgeExtras struct {
	Country string
	Lang    string
}

// buildExtra merges the per-run passthrough fields with handler-specific ones.
func buildExtra(req Request, x EdgeExtras, kv map[string]interface{}) map[string]interface{} {
	extra := make(map[string]interface{}, len(kv)+3)
	for k, v := range kv {
		extra[k] = v
	}
	if req.SessionID != "" {
		extra["session_id"] = req.SessionID
	}
	if x.Country != "" {
		extra["country"] = x.Country
	}
	if x.Lang != "" {
		extra["lang"] = x.Lang
	}
	return extra
}

// envelopeFinal shapes a tool envelope into a terminal result: failures
// become error payloads, never Go errors.
func envelopeFinal(intent Intent, env ToolEnvelope) OrchestrationResult {
	if !env.OK {
		return ErrorFinal(intent, env.Error)
	}
	return Final(intent, env.Result)
}

// maxOrDefault applies the extracted result cap, falling back to the default.
func maxOrDefault(slots Slots, def int) int {
	if slots.Max > 0 {
		return slots.Max
	}
	return def
}

// HeadlinesHandler fetches top headlines. It is also the fallback action for
// unclassifiable queries, so it has no required slots.
type HeadlinesHandler struct {
	Tools  ToolCaller
	Extras EdgeExtras
}

func (h *HeadlinesHandler) Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error) {
	env := h.Tools.Call(ctx, "top headlines", buildExtra(req, h.Extras, map[string]interface{}{
		"max_results": maxOrDefault(slots, defaultMaxResults),
	}))
	return envelopeFinal(IntentHeadlines, env), nil
}

// TopicHandler fetches news about a specific topic.
type TopicHandler struct {
	Tools  ToolCaller
	Extras EdgeExtras
}

func (h *TopicHandler) Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error) {
	if slots.Topic == "" {
		return Followup(IntentTopic, QuestionTopic), nil
	}
	env := h.Tools.Call(ctx, "news about "+slots.Topic, buildExtra(req, h.Extras, map[string]interface{}{
		"max_results": maxOrDefault(slots, defaultMaxResults),
	}))
	return envelopeFinal(IntentTopic, env), nil
}

// HistoryHandler fetches historical events for a date, defaulting to today.
type HistoryHandler struct {
	Tools  ToolCaller
	Extras EdgeExtras
}

func (h *HistoryHandler) Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error) {
	date := slots.DateISO
	if date == "" {
		date = "today"
	}
	env := h.Tools.Call(ctx, fmt.Sprintf("what happened on %s in history", date), buildExtra(req, h.Extras, nil))
	return envelopeFinal(IntentHistory, env), nil
}

// LocalHandler fetches news near a city. The edge service can itself ask for
// clarification (e.g. an unresolvable city); that surfaces exactly like a
// slot-validation follow-up.
type LocalHandler struct {
	Tools  ToolCaller
	Extras EdgeExtras
}

func (h *LocalHandler) Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error) {
	query := "local news near me"
	kv := map[string]interface{}{"max_results": maxOrDefault(slots, defaultMaxResults)}
	if slots.City != "" {
		query = "local news in " + slots.City
		kv["city"] = slots.City
	}
	env := h.Tools.Call(ctx, query, buildExtra(req, h.Extras, kv))
	if !env.OK {
		return ErrorFinal(IntentLocal, env.Error), nil
	}
	if need, _ := env.Result["need_followup"].(bool); need {
		question, _ := env.Result["question"].(string)
		if question == "" {
			question = "Which city are you interested in?"
		}
		return Followup(IntentLocal, question), nil
	}
	return Final(IntentLocal, env.Result), nil
}

// SummarizeHandler summarizes one article URL. The tool result passes
// through unchanged.
type SummarizeHandler struct {
	Tools  ToolCaller
	Extras EdgeExtras
}

func (h *SummarizeHandler) Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error) {
	if slots.URL == "" {
		return Followup(IntentSummarize, QuestionURL), nil
	}
	env := h.Tools.Call(ctx, "summarize "+slots.URL, buildExtra(req, h.Extras, map[string]interface{}{
		"url": slots.URL,
	}))
	return envelopeFinal(IntentSummarize, env), nil
}
