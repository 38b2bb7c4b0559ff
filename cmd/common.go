/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/valpere/perebook/internal/llm"
)

// buildClient constructs the one AI backend a conversion uses. API keys
// fall back to the conventional environment variables when the flag is
// empty. The Ollama backend is probed up front so an unreachable server
// fails the run instead of producing an EPUB full of failure markers.
func buildClient(ctx context.Context, backend, model, ollamaBaseURL, openrouterAPIKey, openaiAPIKey string) (llm.Client, error) {
	switch backend {
	case "ollama":
		c := llm.NewOllama(ollamaBaseURL, model)
		if err := c.IsAvailable(ctx); err != nil {
			return nil, err
		}
		return c, nil
	case "openrouter":
		if openrouterAPIKey == "" {
			openrouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
		}
		c := llm.NewOpenRouter(openrouterAPIKey, model)
		if err := c.IsAvailable(ctx); err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		if openaiAPIKey == "" {
			openaiAPIKey = os.Getenv("OPENAI_API_KEY")
		}
		return llm.NewOpenAI(openaiAPIKey, model)
	default:
		return nil, fmt.Errorf("unknown backend %q (supported: ollama, openrouter, openai)", backend)
	}
}

// resolvedModel names the model a backend will actually use so run
// records stay accurate when the model flag is left empty.
func resolvedModel(backend, model string) string {
	if model != "" {
		return model
	}
	switch backend {
	case "ollama":
		return llm.DefaultOllamaModel
	case "openrouter":
		return llm.DefaultOpenRouterModel
	case "openai":
		return llm.DefaultOpenAIModel
	}
	return model
}

// readFileFlag loads an optional file-backed flag, returning "" when the
// flag is unset.
func readFileFlag(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
