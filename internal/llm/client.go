package llm

import (
	"context"
	"fmt"
)

// Client defines the interface for generating text from a prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider represents an LLM provider type.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderOllama     Provider = "ollama"
	ProviderGemini     Provider = "gemini"
)

// AllProviders lists the supported providers in display order.
var AllProviders = []Provider{
	ProviderOpenRouter,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderOllama,
	ProviderGemini,
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
}

// NewClient creates an LLM client from config.
func NewClient(cfg Config) (Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("no model specified for provider %q; run 'unfck configure' to set one", cfg.Provider)
	}
	switch cfg.Provider {
	case ProviderOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenRouter API key is required")
		}
		return NewOpenRouterClient(cfg.APIKey, cfg.Model), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIClient(baseURL, cfg.APIKey, cfg.Model), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is required")
		}
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaClient(baseURL, cfg.Model), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiClient(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// DefaultModel returns a sensible starting model for a provider, used
// when no model has been configured yet.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenRouter:
		return "anthropic/claude-sonnet-4-5"
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderOllama:
		return "llama3.1"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return ""
	}
}

// ProviderDescription returns a short description for a provider.
func ProviderDescription(p Provider) string {
	switch p {
	case ProviderOpenRouter:
		return "OpenRouter (many hosted models behind one API)"
	case ProviderOpenAI:
		return "OpenAI (GPT models)"
	case ProviderAnthropic:
		return "Anthropic (Claude models)"
	case ProviderOllama:
		return "Ollama (local models, no API key)"
	case ProviderGemini:
		return "Google Gemini"
	default:
		return string(p)
	}
}
