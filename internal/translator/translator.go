// Package translator converts source sentences into aligned sentence
// pairs. Sentences travel to the AI backend in numbered batches with a
// short window of preceding text as context; responses that do not line up
// one-to-one are retried sentence by sentence. Every input sentence comes
// back with a target: a translation or an explicit failure marker, never a
// silent gap.
package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valpere/perebook/internal/llm"
	"github.com/valpere/perebook/internal/placeholder"
	"github.com/valpere/perebook/internal/postprocess"
	"github.com/valpere/perebook/internal/progress"
	"github.com/valpere/perebook/internal/prompt"
)

const (
	// DefaultBatchSize is how many sentences share one AI call.
	DefaultBatchSize = 8

	// DefaultContextSize is how many preceding sentences accompany a
	// batch as untranslated context.
	DefaultContextSize = 3

	// retryContextSize is the smaller context window used when a single
	// sentence is retried on its own.
	retryContextSize = 2

	// snippetRunes bounds the source excerpt embedded in a per-sentence
	// failure marker.
	snippetRunes = 30
)

// SentencePair aligns one source sentence with its translation. Index is
// the 0-based position in the full sentence sequence; a finished run emits
// exactly the indices 0..N-1 with no gaps or duplicates.
type SentencePair struct {
	Index  uint32
	Source string
	Target string
}

// Memory caches finished sentence translations across runs. Both methods
// are best-effort: a Memory must swallow its own storage errors.
type Memory interface {
	Lookup(ctx context.Context, source string) (string, bool)
	Save(ctx context.Context, source, target string)
}

// Config tunes a translation run. Zero values select the defaults.
type Config struct {
	SourceLang     string
	TargetLang     string
	BatchSize      int
	ContextSize    int
	BatchTemplate  string
	SingleTemplate string
	SystemPrompt   string
	Memory         Memory
	Progress       progress.Func
}

// Stats summarizes what a run did. FailedSentences counts targets that
// are failure markers rather than translations.
type Stats struct {
	Batches         int
	Retried         int
	FailedSentences int
	CacheHits       int
	MarkersLost     int
}

func (cfg *Config) applyDefaults() {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ContextSize < 0 {
		cfg.ContextSize = 0
	} else if cfg.ContextSize == 0 {
		cfg.ContextSize = DefaultContextSize
	}
	if cfg.BatchTemplate == "" {
		cfg.BatchTemplate = prompt.DefaultBatchTemplate
	}
	if cfg.SingleTemplate == "" {
		cfg.SingleTemplate = prompt.DefaultSingleTemplate
	}
}

// Translate translates sentences through client and returns one pair per
// sentence, in order. Pairs whose translation could not be obtained carry
// a failure marker target. The only returned errors are cancellation and
// backend failures the taxonomy does not recover from.
func Translate(ctx context.Context, sentences []string, client llm.Client, cfg Config) ([]SentencePair, Stats, error) {
	cfg.applyDefaults()

	var stats Stats
	pairs := make([]SentencePair, len(sentences))
	for i, s := range sentences {
		pairs[i] = SentencePair{Index: uint32(i), Source: s}
	}
	if len(sentences) == 0 {
		return pairs, stats, nil
	}

	r := &run{
		sentences: sentences,
		pairs:     pairs,
		client:    client,
		cfg:       cfg,
		stats:     &stats,
	}

	// Memory first: cached sentences keep their indices but skip the
	// backend entirely.
	var pending []int
	for i, s := range sentences {
		if cfg.Memory != nil {
			if target, ok := cfg.Memory.Lookup(ctx, s); ok {
				pairs[i].Target = target
				stats.CacheHits++
				continue
			}
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return pairs, stats, err
		}
		end := start + cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := r.translateBatch(ctx, pending[start:end]); err != nil {
			return pairs, stats, err
		}
		stats.Batches++

		done := end + stats.CacheHits
		cfg.Progress.Emit(progress.Event{
			Phase:           progress.PhaseTranslate,
			CurrentSentence: done,
			TotalSentences:  len(sentences),
			Percentage:      progress.Percent(done, len(sentences)),
			Message:         "translating",
		})
	}

	return pairs, stats, nil
}

// run carries the shared state of one Translate invocation.
type run struct {
	sentences []string
	pairs     []SentencePair
	client    llm.Client
	cfg       Config
	stats     *Stats
	calls     int
}

// pace inserts the inter-call delay before every backend call except the
// first of the run.
func (r *run) pace(ctx context.Context) error {
	if r.calls == 0 {
		return nil
	}
	return llm.Pace(ctx, r.client)
}

// translateBatch resolves the sentences at the given indices: one batch
// call, then the mismatch or failure path if needed. After it returns,
// every index has a non-empty target.
func (r *run) translateBatch(ctx context.Context, indices []int) error {
	protected := make([]string, len(indices))
	spans := make([][]string, len(indices))
	anyProtected := false
	for i, idx := range indices {
		src := r.sentences[idx]
		if placeholder.HasMarkup(src) {
			protected[i], spans[i] = placeholder.Protect(src)
			anyProtected = true
		} else {
			protected[i] = src
		}
	}

	system := r.cfg.SystemPrompt
	if anyProtected {
		system = strings.TrimSpace(system + "\n" + placeholder.Hint())
	}

	batchPrompt := prompt.RenderBatch(r.cfg.BatchTemplate, r.cfg.SourceLang, r.cfg.TargetLang,
		protected, r.contextBefore(indices[0], r.cfg.ContextSize))

	if err := r.pace(ctx); err != nil {
		return err
	}
	completion, err := r.client.Complete(ctx, batchPrompt, system)
	r.calls++

	switch {
	case err == nil:
		// fall through to parsing
	case isProviderError(err):
		// The whole batch failed; mark every sentence and move on.
		slog.Warn("batch translation failed", "sentences", len(indices), "error", err)
		for _, idx := range indices {
			r.pairs[idx].Target = BatchFailureMarker(err)
			r.stats.FailedSentences++
		}
		return nil
	default:
		return err
	}

	lines := parseNumbered(postprocess.CleanResponse(completion))
	if len(lines) == len(indices) {
		for i, idx := range indices {
			r.pairs[idx].Target = r.finishTarget(ctx, idx, lines[i], spans[i])
		}
		return nil
	}

	// Count mismatch: the batch result is unusable as a whole. Retry each
	// sentence alone rather than guessing at an alignment.
	slog.Warn("batch line count mismatch, retrying individually",
		"expected", len(indices), "got", len(lines))
	for i, idx := range indices {
		if err := r.retrySentence(ctx, idx, protected[i], spans[i], system); err != nil {
			return err
		}
	}
	return nil
}

// retrySentence resolves one sentence with a simplified single-sentence
// prompt. An empty or failed result becomes a per-sentence failure marker.
func (r *run) retrySentence(ctx context.Context, idx int, protectedSrc string, spans []string, system string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.pace(ctx); err != nil {
		return err
	}

	singlePrompt := prompt.RenderSingle(r.cfg.SingleTemplate, r.cfg.SourceLang, r.cfg.TargetLang,
		protectedSrc, r.contextBefore(idx, retryContextSize))

	completion, err := r.client.Complete(ctx, singlePrompt, system)
	r.calls++
	r.stats.Retried++

	if err != nil {
		if !isProviderError(err) {
			return err
		}
		slog.Warn("sentence retry failed", "index", idx, "error", err)
		r.pairs[idx].Target = SentenceFailureMarker(r.sentences[idx])
		r.stats.FailedSentences++
		return nil
	}

	line := firstNonEmptyLine(postprocess.CleanResponse(completion))
	if line == "" {
		r.pairs[idx].Target = SentenceFailureMarker(r.sentences[idx])
		r.stats.FailedSentences++
		return nil
	}
	r.pairs[idx].Target = r.finishTarget(ctx, idx, line, spans)
	return nil
}

// finishTarget turns a parsed response line into the final target text:
// scrub, restore protected spans, record lost markers, save to memory.
func (r *run) finishTarget(ctx context.Context, idx int, line string, spans []string) string {
	target := postprocess.CleanLine(line)
	if len(spans) > 0 {
		r.stats.MarkersLost += len(placeholder.Missing(target, spans))
		target = placeholder.Restore(target, spans)
	}
	if r.cfg.Memory != nil && !IsFailureMarker(target) {
		r.cfg.Memory.Save(ctx, r.sentences[idx], target)
	}
	return target
}

// contextBefore returns up to max sentences preceding position idx, in
// document order.
func (r *run) contextBefore(idx, max int) []string {
	if max <= 0 || idx <= 0 {
		return nil
	}
	start := idx - max
	if start < 0 {
		start = 0
	}
	return r.sentences[start:idx]
}

func isProviderError(err error) bool {
	var pe *llm.ProviderError
	return errors.As(err, &pe)
}

// --- failure markers ---

const (
	batchFailurePrefix    = "[Translation failed: "
	sentenceFailurePrefix = "[Translation failed for: "
)

// BatchFailureMarker builds the target used for every sentence of a batch
// whose AI call failed outright.
func BatchFailureMarker(err error) string {
	reason := "unknown error"
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		reason = pe.Message
		if pe.Status != 0 {
			reason = fmt.Sprintf("status %d: %s", pe.Status, pe.Message)
		}
	} else if err != nil {
		reason = err.Error()
	}
	return batchFailurePrefix + reason + "]"
}

// SentenceFailureMarker builds the target used when an individual retry
// produced nothing usable. It embeds a short excerpt of the source so the
// failure is findable in the output document.
func SentenceFailureMarker(source string) string {
	runes := []rune(source)
	if len(runes) > snippetRunes {
		source = string(runes[:snippetRunes]) + "..."
	}
	return sentenceFailurePrefix + source + "]"
}

// IsFailureMarker reports whether target is one of the explicit failure
// markers rather than a translation.
func IsFailureMarker(target string) bool {
	return strings.HasPrefix(target, batchFailurePrefix) ||
		strings.HasPrefix(target, sentenceFailurePrefix)
}
