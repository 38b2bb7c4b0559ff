package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

const DefaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"

// transientAttempts bounds transport-level retries on 429/5xx before the
// failure is surfaced to the stage.
const transientAttempts = 3

// OpenRouter talks to the hosted OpenRouter chat completions API.
type OpenRouter struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenRouter(apiKey, model string) *OpenRouter {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: "https://openrouter.ai/api/v1",
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *OpenRouter) Name() string {
	return "openrouter"
}

func (c *OpenRouter) Hosted() bool {
	return true
}

func (c *OpenRouter) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", &ProviderError{Message: "OpenRouter API key required"}
	}

	var text string
	err := retry.Do(
		func() error {
			var err error
			text, err = c.complete(ctx, prompt, systemPrompt)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(transientAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var pe *ProviderError
			return errors.As(err, &pe) && pe.Retryable()
		}),
	)
	return text, err
}

func (c *OpenRouter) complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	body := map[string]interface{}{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": 4096,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", c.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	httpReq.Header.Set("HTTP-Referer", "https://perebook.local")
	httpReq.Header.Set("X-Title", "PereBook")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", ctxOrProviderErr(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", &ProviderError{Status: resp.StatusCode, Message: fmt.Sprintf("%v", errResp)}
	}

	var orResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orResp); err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if len(orResp.Choices) == 0 {
		return "", &ProviderError{Message: "empty response from API"}
	}

	return orResp.Choices[0].Message.Content, nil
}

// IsAvailable only checks configuration; the first real call surfaces auth
// problems.
func (c *OpenRouter) IsAvailable(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}
