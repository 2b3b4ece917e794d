package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the resolved settings for a run. Values come from
// ~/.unfck/config.json with environment variables taking precedence.
type Config struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Style    string `json:"style"`

	// API Keys
	OpenRouterAPIKey string `json:"openrouter_api_key,omitempty"`
	OpenAIAPIKey     string `json:"openai_api_key,omitempty"`
	AnthropicAPIKey  string `json:"anthropic_api_key,omitempty"`
	GeminiAPIKey     string `json:"gemini_api_key,omitempty"`

	// Ollama config
	OllamaBaseURL string `json:"ollama_base_url,omitempty"`
	OllamaModel   string `json:"ollama_model,omitempty"`

	// Selection defaults
	DefaultCommitCount int  `json:"default_commit_count"`
	SkipMergeCommits   bool `json:"skip_merge_commits"`

	// Behavior
	AutoApply          bool `json:"auto_apply"`
	AskWhy             bool `json:"ask_why"`
	ShowDiff           bool `json:"show_diff"`
	RemoveQuotes       bool `json:"remove_quotes"`
	WarnSharedBranches bool `json:"warn_on_shared_branches"`
	KeepBackup         bool `json:"keep_backup"`

	// Skip commits whose message already looks meaningful.
	SkipMeaningful      bool `json:"skip_meaningful"`
	MeaningfulMinLength int  `json:"meaningful_min_length"`

	// Limits
	DiffBudget            int `json:"diff_budget"`
	MaxRetries            int `json:"max_retries"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

var configPath string

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		configPath = ".unfck/config.json"
		return
	}
	configPath = filepath.Join(homeDir, ".unfck", "config.json")
}

func GetConfigPath() string {
	return configPath
}

// SetConfigPath overrides the config location, primarily for tests.
func SetConfigPath(path string) {
	configPath = path
}

func defaults() *Config {
	return &Config{
		Provider:              "openrouter",
		Model:                 "openai/gpt-4o",
		Style:                 "descriptive",
		OllamaBaseURL:         "http://localhost:11434",
		OllamaModel:           "llama3.2",
		DefaultCommitCount:    5,
		SkipMergeCommits:      true,
		ShowDiff:              true,
		RemoveQuotes:          true,
		WarnSharedBranches:    true,
		MeaningfulMinLength:   20,
		DiffBudget:            8000,
		MaxRetries:            3,
		RequestTimeoutSeconds: 60,
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("UNFCK_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("UNFCK_AUTO_APPLY"); v != "" {
		c.AutoApply = isTruthy(v)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func (c *Config) Save() error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetAPIKey returns the configured key for a provider, falling back to
// the conventional environment variable.
func (c *Config) GetAPIKey(provider string) string {
	switch provider {
	case "openrouter":
		if c.OpenRouterAPIKey != "" {
			return c.OpenRouterAPIKey
		}
		return os.Getenv("OPENROUTER_API_KEY")
	case "openai":
		if c.OpenAIAPIKey != "" {
			return c.OpenAIAPIKey
		}
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		if c.AnthropicAPIKey != "" {
			return c.AnthropicAPIKey
		}
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		if c.GeminiAPIKey != "" {
			return c.GeminiAPIKey
		}
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

func (c *Config) HasProvider(provider string) bool {
	switch provider {
	case "ollama":
		return true
	case "openrouter", "openai", "anthropic", "gemini":
		return c.GetAPIKey(provider) != ""
	default:
		return false
	}
}
