package llm

import (
	"context"
	"sync"
)

// MockCall records one Complete invocation against a Mock.
type MockCall struct {
	Prompt string
	System string
}

// Mock is a scripted Client for tests. Reply receives the 0-based call
// number plus the prompts and decides the outcome; a nil Reply echoes the
// prompt back. Calls are recorded and retrievable via Calls.
type Mock struct {
	Reply    func(call int, prompt, system string) (string, error)
	IsHosted bool

	mu    sync.Mutex
	calls []MockCall
}

func (m *Mock) Name() string {
	return "mock"
}

func (m *Mock) Hosted() bool {
	return m.IsHosted
}

func (m *Mock) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, System: systemPrompt})
	n := len(m.calls) - 1
	m.mu.Unlock()

	if m.Reply == nil {
		return prompt, nil
	}
	return m.Reply(n, prompt, systemPrompt)
}

// Calls returns a copy of the recorded invocations in order.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Complete has been invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
