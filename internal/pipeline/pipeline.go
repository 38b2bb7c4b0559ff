// Package pipeline drives one conversion from raw text to a finished EPUB
// archive. Stages run strictly in sequence over shared in-memory state;
// cancellation is honored between stages and, inside the AI stages, between
// chunks and batches.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/perebook/internal/abbrev"
	"github.com/valpere/perebook/internal/chunker"
	"github.com/valpere/perebook/internal/cleanup"
	"github.com/valpere/perebook/internal/epub"
	"github.com/valpere/perebook/internal/llm"
	"github.com/valpere/perebook/internal/markdown"
	"github.com/valpere/perebook/internal/ocf"
	"github.com/valpere/perebook/internal/progress"
	"github.com/valpere/perebook/internal/prompt"
	"github.com/valpere/perebook/internal/segment"
	"github.com/valpere/perebook/internal/translator"
	"github.com/valpere/perebook/internal/validator"
)

// Options configures one conversion run.
type Options struct {
	// SourceLang is a resolved ISO code; "auto" detection happens upstream.
	SourceLang string
	TargetLang string

	Title  string
	Author string

	Granularity segment.Granularity
	ChunkChars  int
	BatchSize   int
	ContextSize int

	SkipCleanup   bool
	CleanupPrompt string // "" selects the default restoration prompt

	BatchTemplate  string
	SingleTemplate string
	SystemPrompt   string

	KeepSource bool
	Sentinel   bool

	Markdown   bool // input is Markdown and should be flattened
	KeepMarkup bool // leave Markdown markup in place

	Validate bool
	Memory   translator.Memory
	Progress progress.Func
}

// Result reports what one conversion produced.
type Result struct {
	Archive []byte

	Chapters  int
	Chunks    int
	Sentences int

	CleanupFallbacks int
	Translation      translator.Stats
	Validation       validator.Report
}

// Run converts input into a complete EPUB archive using client as the one
// AI backend for both cleanup and translation. The archive is built fully
// in memory; writing it out is the caller's job.
func Run(ctx context.Context, input string, client llm.Client, opts Options) (*Result, error) {
	if opts.Markdown && !opts.KeepMarkup {
		input = markdown.Flatten([]byte(input))
	}

	chapters := splitChapters(input)
	if len(chapters) == 1 && chapters[0].Title == "" {
		chapters[0].Title = opts.Title
	}

	res := &Result{Chapters: len(chapters)}

	// Plan all chapters up front so cleanup reports progress over the whole
	// book rather than restarting per chapter.
	var chunks []chunker.Chunk
	chunkCounts := make([]int, len(chapters))
	for i, ch := range chapters {
		planned := chunker.Plan(ch.Body, opts.ChunkChars)
		chunkCounts[i] = len(planned)
		chunks = append(chunks, planned...)
	}
	res.Chunks = len(chunks)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("input contains no text")
	}
	opts.Progress.Emit(progress.Event{
		Phase:       progress.PhasePlan,
		TotalChunks: len(chunks),
		Percentage:  100,
		Message:     fmt.Sprintf("planned %d chunks in %d chapters", len(chunks), len(chapters)),
	})

	texts := make([]string, len(chunks))
	if opts.SkipCleanup {
		for i, c := range chunks {
			texts[i] = c.Text
		}
	} else {
		system := opts.CleanupPrompt
		if system == "" {
			system = prompt.DefaultCleanupSystem
		}
		cleaned, err := cleanup.Run(ctx, chunks, client, cleanup.Options{
			SystemPrompt: system,
			Progress:     opts.Progress,
		})
		if err != nil {
			return nil, fmt.Errorf("cleanup: %w", err)
		}
		texts = cleaned.Texts
		res.CleanupFallbacks = cleaned.Fallbacks
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Rebuild each chapter from its cleaned chunks, normalize abbreviations
	// and segment. Sentence indices are global across chapters.
	var sentences []string
	perChapter := make([][]string, len(chapters))
	offset := 0
	for i := range chapters {
		body := strings.Join(texts[offset:offset+chunkCounts[i]], "\n\n")
		offset += chunkCounts[i]

		segs := segment.Split(abbrev.Normalize(body), opts.SourceLang, opts.Granularity)
		perChapter[i] = segs
		sentences = append(sentences, segs...)
	}
	res.Sentences = len(sentences)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("no sentences after segmentation")
	}
	opts.Progress.Emit(progress.Event{
		Phase:          progress.PhaseSegment,
		TotalSentences: len(sentences),
		Percentage:     100,
		Message:        fmt.Sprintf("segmented %d sentences", len(sentences)),
	})

	pairs, stats, err := translator.Translate(ctx, sentences, client, translator.Config{
		SourceLang:     opts.SourceLang,
		TargetLang:     opts.TargetLang,
		BatchSize:      opts.BatchSize,
		ContextSize:    opts.ContextSize,
		BatchTemplate:  opts.BatchTemplate,
		SingleTemplate: opts.SingleTemplate,
		SystemPrompt:   opts.SystemPrompt,
		Memory:         opts.Memory,
		Progress:       opts.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	res.Translation = stats

	if opts.Validate {
		res.Validation = validator.New().CheckPairs(pairs, opts.TargetLang)
	}

	book := epub.Book{
		Title:          opts.Title,
		Author:         opts.Author,
		Language:       opts.TargetLang,
		SourceLanguage: opts.SourceLang,
		KeepSource:     opts.KeepSource,
		Sentinel:       opts.Sentinel,
	}
	offset = 0
	for i, ch := range chapters {
		n := len(perChapter[i])
		book.Chapters = append(book.Chapters, epub.Chapter{
			Title: ch.Title,
			Pairs: pairs[offset : offset+n],
		})
		offset += n
	}

	entries, err := epub.Assemble(book)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	archive, err := ocf.Bytes(entries)
	if err != nil {
		return nil, fmt.Errorf("package: %w", err)
	}
	res.Archive = archive

	opts.Progress.Emit(progress.Event{
		Phase:      progress.PhaseAssemble,
		Percentage: 100,
		Message:    fmt.Sprintf("assembled %d chapters", len(book.Chapters)),
	})

	return res, nil
}
