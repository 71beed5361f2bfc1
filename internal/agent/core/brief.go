package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
)

const (
	briefFetchDefault = 8     // articles requested from the topic fetch
	briefSourceCap    = 3     // articles actually summarized
	briefCharBudget   = 15000 // cap on the aggregation prompt block
	briefClosing      = "What to watch"
)

const briefSystemPrompt = `You are a news editor writing a compact briefing.
From the source notes you are given, write roughly 7-9 bullet points that
capture the most important developments, then end with a final section titled
"` + briefClosing + `" highlighting what readers should keep an eye on.
Respond with the briefing text only.`

// BriefHandler synthesizes a multi-source brief: fetch topic articles, fan
// out per-article summarization calls, then aggregate the survivors with one
// generation call.
type BriefHandler struct {
	Tools  ToolCaller
	LLM    LLMProvider
	Extras EdgeExtras
	Logger *log.Logger
}

func (h *BriefHandler) Handle(ctx context.Context, req Request, slots Slots) (OrchestrationResult, error) {
	if slots.Topic == "" {
		return Followup(IntentBrief, QuestionBrief), nil
	}

	env := h.Tools.Call(ctx, "news about "+slots.Topic, buildExtra(req, h.Extras, map[string]interface{}{
		"max_results": maxOrDefault(slots, briefFetchDefault),
	}))
	if !env.OK {
		return ErrorFinal(IntentBrief, env.Error), nil
	}

	articles := articlesFromResult(env.Result)
	if len(articles) > briefSourceCap {
		articles = articles[:briefSourceCap]
	}

	summaries := h.summarizeArticles(ctx, req, articles)
	recordBriefSources(ctx, len(summaries))
	if len(summaries) == 0 {
		return ErrorFinal(IntentBrief, "no sources could be summarized for this topic"), nil
	}

	text, err := h.aggregate(ctx, slots.Topic, summaries)
	if err != nil {
		return ErrorFinal(IntentBrief, "brief generation failed: "+err.Error()), nil
	}

	return Final(IntentBrief, map[string]interface{}{
		"topic":   slots.Topic,
		"brief":   text,
		"sources": summaries,
	}), nil
}

// summarizeArticles issues one summarization call per article. Calls run
// concurrently; results are collected positionally so the surviving set keeps
// the fetched article order. A failed sub-call is dropped, not fatal.
func (h *BriefHandler) summarizeArticles(ctx context.Context, req Request, articles []Article) []SourceSummary {
	slots := make([]*SourceSummary, len(articles))
	var wg sync.WaitGroup
	for i, article := range articles {
		if article.URL == "" {
			continue
		}
		wg.Add(1)
		go func(i int, article Article) {
			defer wg.Done()
			env := h.Tools.Call(ctx, "summarize "+article.URL, buildExtra(req, h.Extras, map[string]interface{}{
				"url": article.URL,
			}))
			if !env.OK {
				if h.Logger != nil {
					h.Logger.Printf("summarization dropped for %s: %s", article.URL, env.Error)
				}
				return
			}
			summary, _ := env.Result["summary"].(string)
			if strings.TrimSpace(summary) == "" {
				return
			}
			slots[i] = &SourceSummary{URL: article.URL, Summary: summary}
		}(i, article)
	}
	wg.Wait()

	var out []SourceSummary
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// aggregate joins the per-source summaries into one bounded block and runs
// the free-text generation call.
func (h *BriefHandler) aggregate(ctx context.Context, topic string, summaries []SourceSummary) (string, error) {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s (%s)\n", s.Summary, s.URL)
	}
	block := truncate(b.String(), briefCharBudget)

	user := fmt.Sprintf("Topic: %s\n\nSource notes:\n%s", topic, block)
	text, err := h.LLM.Generate(ctx, briefSystemPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// articlesFromResult pulls the ordered article list out of a fetch result.
// Unparseable entries are skipped rather than failing the brief.
func articlesFromResult(result map[string]interface{}) []Article {
	raw, ok := result["articles"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil
	}
	return articles
}
