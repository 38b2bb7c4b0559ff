// Package cleanup runs the AI text-restoration pass over planned chunks.
// The pass is best-effort: a chunk whose AI call fails keeps its original
// text, so a flaky backend degrades output quality but never loses input.
package cleanup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/valpere/perebook/internal/chunker"
	"github.com/valpere/perebook/internal/llm"
	"github.com/valpere/perebook/internal/postprocess"
	"github.com/valpere/perebook/internal/progress"
)

// Options configures a cleanup pass.
type Options struct {
	// SystemPrompt instructs the backend how to clean. Required; callers
	// pass prompt.DefaultCleanupSystem unless overridden.
	SystemPrompt string

	// Progress receives one event per processed chunk. May be nil.
	Progress progress.Func
}

// Result is the outcome of a cleanup pass. Texts always has one entry per
// input chunk, in chunk order.
type Result struct {
	Texts     []string
	Fallbacks int
}

// Run cleans every chunk through client, in order. Backend failures on a
// chunk substitute the original chunk text and are counted in Fallbacks.
// Hosted backends are paced between consecutive calls. Cancellation aborts
// between chunks and returns the context's error.
func Run(ctx context.Context, chunks []chunker.Chunk, client llm.Client, opts Options) (Result, error) {
	res := Result{Texts: make([]string, 0, len(chunks))}

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i > 0 {
			if err := llm.Pace(ctx, client); err != nil {
				return res, err
			}
		}

		cleaned, err := client.Complete(ctx, chunk.Text, opts.SystemPrompt)
		switch {
		case err == nil:
			cleaned = postprocess.CleanLine(postprocess.CleanResponse(cleaned))
			if cleaned == "" {
				slog.Warn("cleanup returned empty text, keeping original",
					"chunk", chunk.Ordinal)
				cleaned = chunk.Text
				res.Fallbacks++
			}
			res.Texts = append(res.Texts, cleaned)
		case isProviderError(err):
			slog.Warn("cleanup call failed, keeping original",
				"chunk", chunk.Ordinal, "error", err)
			res.Texts = append(res.Texts, chunk.Text)
			res.Fallbacks++
		default:
			return res, err
		}

		opts.Progress.Emit(progress.Event{
			Phase:        progress.PhaseCleanup,
			CurrentChunk: i + 1,
			TotalChunks:  len(chunks),
			Percentage:   progress.Percent(i+1, len(chunks)),
			Message:      "cleaning text",
		})
	}

	return res, nil
}

func isProviderError(err error) bool {
	var pe *llm.ProviderError
	return errors.As(err, &pe)
}
