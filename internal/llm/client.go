// Package llm defines the prompt-completion capability the pipeline stages
// depend on, together with its concrete backends. Stages never know which
// backend is active; exactly one Client serves a whole run.
package llm

import (
	"context"
	"fmt"
)

// Client is the single capability the pipeline requires from an AI
// backend: send a prompt (with an optional system prompt) and receive the
// completion text. Implementations must be safe for sequential reuse
// across many calls within one run.
type Client interface {
	// Name identifies the backend ("ollama", "openrouter", "openai").
	Name() string

	// Hosted reports whether the backend is a remote hosted API. Hosted
	// backends are paced between calls; local ones are not.
	Hosted() bool

	// Complete sends prompt (and systemPrompt, if non-empty) to the
	// backend and returns the completion text. Backend failures are
	// reported as *ProviderError; context cancellation is returned as
	// the context's error.
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// ProviderError reports a failed backend call: a non-success HTTP status,
// a transport failure, or an empty completion. Status is 0 when no HTTP
// status applies. Stages recover from ProviderError locally (fallbacks,
// failure markers); any other error aborts the run.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

// Retryable reports whether the failure is transient (rate limiting or a
// server-side error) and worth retrying at the transport level.
func (e *ProviderError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// ctxOrProviderErr folds a transport error into the taxonomy: a canceled
// context surfaces as the context error, anything else as *ProviderError.
func ctxOrProviderErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ProviderError{Message: fmt.Sprintf("request failed: %v", err)}
}
