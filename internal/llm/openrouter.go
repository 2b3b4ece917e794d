package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

type OpenRouterClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewOpenRouterClient(apiKey, model string) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: openRouterBaseURL,
		client:  &http.Client{},
	}
}

// SetBaseURL overrides the API endpoint, primarily for tests.
func (c *OpenRouterClient) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openRouterChatResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type openRouterModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *OpenRouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := openRouterChatRequest{
		Model: c.model,
		Messages: []openRouterMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "unfck")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", newProviderError("openrouter", classifyTransport(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newProviderError("openrouter", FailureNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", newProviderError("openrouter", classifyStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var result openRouterChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", newProviderError("openrouter", FailureMalformed, err)
	}
	if result.Error != nil {
		return "", newProviderError("openrouter", FailureMalformed, fmt.Errorf("%s", result.Error.Message))
	}
	if len(result.Choices) == 0 {
		return "", newProviderError("openrouter", FailureMalformed, fmt.Errorf("no choices in response"))
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// Models returns the model identifiers available through OpenRouter.
func (c *OpenRouterClient) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newProviderError("openrouter", classifyTransport(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newProviderError("openrouter", FailureNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newProviderError("openrouter", classifyStatus(resp.StatusCode),
			fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var result openRouterModelsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, newProviderError("openrouter", FailureMalformed, err)
	}

	ids := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
