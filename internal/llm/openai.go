package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI talks to the OpenAI chat completions API through the official
// SDK. The SDK performs its own transient retries.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required (set OPENAI_API_KEY or --openai-key)")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *OpenAI) Name() string {
	return "openai"
}

func (c *OpenAI) Hosted() bool {
	return true
}

func (c *OpenAI) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &ProviderError{Status: apierr.StatusCode, Message: apierr.Message}
		}
		return "", &ProviderError{Message: fmt.Sprintf("request failed: %v", err)}
	}

	if len(completion.Choices) == 0 {
		return "", &ProviderError{Message: "empty response from API"}
	}
	return completion.Choices[0].Message.Content, nil
}
