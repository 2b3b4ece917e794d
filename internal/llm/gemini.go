package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient implements the Client interface using Google's official
// Gemini Go SDK. The SDK client is initialized lazily on first use.
type GeminiClient struct {
	client *genai.Client
	apiKey string
	model  string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
	}
}

func (c *GeminiClient) ensureClient(ctx context.Context) error {
	if c.client != nil {
		return nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  c.apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	return nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := c.ensureClient(ctx); err != nil {
		return "", newProviderError("gemini", FailureAuth, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				genai.NewPartFromText(prompt),
			},
		},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", newProviderError("gemini", classifyGeminiError(err), err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", newProviderError("gemini", FailureMalformed, fmt.Errorf("empty response"))
	}
	return text, nil
}

func classifyGeminiError(err error) FailureKind {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"):
		return FailureRateLimit
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(msg, "API key"):
		return FailureAuth
	default:
		return classifyTransport(err)
	}
}
