package provider

import (
	"errors"

	"github.com/newsdesk-io/newsdesk/config"
	"github.com/newsdesk-io/newsdesk/internal/agent/core"
	openai_provider "github.com/newsdesk-io/newsdesk/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMConfig) (core.LLMProvider, error) {
	switch Client(cfg.Provider) {
	case OpenAI, "":
		return openai_provider.NewClient(cfg), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
