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
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/perebook/internal/chunker"
	"github.com/valpere/perebook/internal/detector"
	"github.com/valpere/perebook/internal/pipeline"
	"github.com/valpere/perebook/internal/progress"
	"github.com/valpere/perebook/internal/prompt"
	"github.com/valpere/perebook/internal/segment"
	"github.com/valpere/perebook/internal/store"
	"github.com/valpere/perebook/internal/translator"
)

var (
	inputFile  string
	outputFile string
	sourceLang string
	targetLang string

	bookTitle  string
	bookAuthor string

	granularity string
	chunkChars  int
	batchSize   int
	contextSize int

	skipCleanup       bool
	cleanupPromptFile string
	templateFile      string

	keepSource  bool
	keepMarkup  bool
	addSentinel bool

	noCache     bool
	useGlossary bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a book into a bilingual sentence-aligned EPUB",
	Long: `Convert a plain text or Markdown book into an EPUB where every
sentence is translated by an AI backend and addressable by a stable id,
ready for narration tools that play sentence pairs.

Available backends:
  - ollama      Ollama LLM (self-hosted, default)
  - openrouter  OpenRouter LLM (requires API key)
  - openai      OpenAI (requires API key)

Translations are cached per sentence in a local database, so converting
a revised draft only pays for the sentences that changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		var gran segment.Granularity
		switch granularity {
		case "sentence":
			gran = segment.Sentence
		case "paragraph":
			gran = segment.Paragraph
		default:
			return fmt.Errorf("invalid granularity %q (use sentence or paragraph)", granularity)
		}

		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(raw)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Flags take precedence over config file and PEREBOOK_* env.
		backendName := viper.GetString("backend")
		model := resolvedModel(backendName, viper.GetString("model"))

		ext := strings.ToLower(filepath.Ext(inputFile))
		isMarkdown := ext == ".md" || ext == ".markdown"

		if sourceLang == "auto" {
			sourceLang = detector.New().DetectSource(text)
			fmt.Fprintf(os.Stderr, "Detected source language: %s\n", sourceLang)
		}

		if bookTitle == "" {
			bookTitle = strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
		}

		// A broken cache degrades to a plain run; it never fails one.
		var db *store.Store
		var memory translator.Memory
		if path := viper.GetString("db"); !noCache && path != "" {
			db, err = store.New(path)
			if err != nil {
				slog.Warn("translation memory unavailable, continuing without it", "error", err)
				db = nil
			} else {
				defer db.Close()
				memory = db.RunMemory(sourceLang, targetLang, backendName)
			}
		}

		systemPrompt := prompt.DefaultTranslateSystem
		if db != nil && useGlossary {
			terms, gerr := db.GetGlossaryTerms(ctx, sourceLang, targetLang)
			if gerr != nil {
				slog.Warn("could not load glossary terms", "error", gerr)
			} else if len(terms) > 0 {
				systemPrompt = prompt.AppendGlossary(systemPrompt, terms)
				fmt.Fprintf(os.Stderr, "Applying %d glossary terms\n", len(terms))
			}
		}

		cleanupPrompt, err := readFileFlag(cleanupPromptFile)
		if err != nil {
			return err
		}
		batchTemplate, err := readFileFlag(templateFile)
		if err != nil {
			return err
		}

		client, err := buildClient(ctx, backendName,
			viper.GetString("model"),
			viper.GetString("ollama-url"),
			viper.GetString("openrouter-key"),
			viper.GetString("openai-key"))
		if err != nil {
			return err
		}

		start := time.Now()
		render := renderProgress()

		res, err := pipeline.Run(ctx, text, client, pipeline.Options{
			SourceLang:    sourceLang,
			TargetLang:    targetLang,
			Title:         bookTitle,
			Author:        bookAuthor,
			Granularity:   gran,
			ChunkChars:    chunkChars,
			BatchSize:     batchSize,
			ContextSize:   contextSize,
			SkipCleanup:   skipCleanup,
			CleanupPrompt: cleanupPrompt,
			BatchTemplate: batchTemplate,
			SystemPrompt:  systemPrompt,
			KeepSource:    keepSource,
			Sentinel:      addSentinel,
			Markdown:      isMarkdown,
			KeepMarkup:    keepMarkup,
			Validate:      true,
			Memory:        memory,
			Progress:      render,
		})
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		// Write to a sibling temp file and rename so an interrupted run
		// never leaves a truncated archive at the target path.
		tmpFile := outputFile + ".tmp"
		if err := os.WriteFile(tmpFile, res.Archive, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if err := os.Rename(tmpFile, outputFile); err != nil {
			os.Remove(tmpFile)
			return fmt.Errorf("failed to finalize output file: %w", err)
		}
		render(progress.Event{
			Phase:      progress.PhaseWrite,
			Percentage: 100,
			Message:    fmt.Sprintf("wrote %s (%d bytes)", outputFile, len(res.Archive)),
		})

		if db != nil {
			_ = db.RecordRun(ctx, store.RunRecord{
				InputFile:     inputFile,
				OutputFile:    outputFile,
				SourceLang:    sourceLang,
				TargetLang:    targetLang,
				Backend:       client.Name(),
				Model:         model,
				SentenceCount: res.Sentences,
				FailedCount:   res.Translation.FailedSentences,
				CacheHits:     res.Translation.CacheHits,
				Duration:      time.Since(start),
			})
		}

		fmt.Printf("Successfully converted %s to %s (%s -> %s)\n", inputFile, outputFile, sourceLang, targetLang)
		fmt.Printf("Chapters: %d, sentences: %d, batches: %d\n", res.Chapters, res.Sentences, res.Translation.Batches)
		if res.Translation.CacheHits > 0 {
			fmt.Printf("Translation memory hits: %d\n", res.Translation.CacheHits)
		}
		if res.CleanupFallbacks > 0 {
			fmt.Printf("Cleanup fallbacks (original text kept): %d\n", res.CleanupFallbacks)
		}
		if res.Translation.FailedSentences > 0 {
			fmt.Printf("Sentences with failure markers: %d\n", res.Translation.FailedSentences)
		}
		if res.Validation.Mismatched > 0 {
			fmt.Printf("Language check: %d of %d sampled sentences look untranslated\n",
				res.Validation.Mismatched, res.Validation.Checked)
		}
		return nil
	},
}

// renderProgress writes pipeline progress to stderr: one-shot stage
// messages as plain lines, per-chunk and per-sentence counters as a
// carriage-return ticker.
func renderProgress() progress.Func {
	return func(e progress.Event) {
		switch e.Phase {
		case progress.PhaseCleanup:
			fmt.Fprintf(os.Stderr, "\rCleaning up: chunk %d/%d (%.0f%%)", e.CurrentChunk, e.TotalChunks, e.Percentage)
			if e.CurrentChunk == e.TotalChunks {
				fmt.Fprintln(os.Stderr)
			}
		case progress.PhaseTranslate:
			fmt.Fprintf(os.Stderr, "\rTranslating: %d/%d sentences (%.0f%%)", e.CurrentSentence, e.TotalSentences, e.Percentage)
			if e.CurrentSentence == e.TotalSentences {
				fmt.Fprintln(os.Stderr)
			}
		default:
			if e.Message != "" {
				fmt.Fprintf(os.Stderr, "%s\n", e.Message)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input text or Markdown file (required)")
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output EPUB file (required)")
	convertCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code")
	convertCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")

	// Backend settings go through viper so the config file and PEREBOOK_*
	// env can supply them; the flag wins when set.
	convertCmd.Flags().String("backend", "ollama", "AI backend: ollama, openrouter, or openai")
	convertCmd.Flags().String("model", "", "Model name (backend default used if empty)")
	convertCmd.Flags().String("ollama-url", "http://localhost:11434", "Ollama base URL")
	convertCmd.Flags().String("openrouter-key", "", "OpenRouter API key (or OPENROUTER_API_KEY)")
	convertCmd.Flags().String("openai-key", "", "OpenAI API key (or OPENAI_API_KEY)")

	convertCmd.Flags().StringVar(&bookTitle, "title", "", "Book title (defaults to the input file name)")
	convertCmd.Flags().StringVar(&bookAuthor, "author", "", "Book author")

	convertCmd.Flags().StringVar(&granularity, "granularity", "sentence", "Segmentation unit: sentence or paragraph")
	convertCmd.Flags().IntVar(&chunkChars, "chunk-chars", chunker.DefaultMaxChars, "Character budget per cleanup chunk")
	convertCmd.Flags().IntVar(&batchSize, "batch-size", translator.DefaultBatchSize, "Sentences per translation batch")
	convertCmd.Flags().IntVar(&contextSize, "context-size", translator.DefaultContextSize, "Preceding sentences sent as context")

	convertCmd.Flags().BoolVar(&skipCleanup, "skip-cleanup", false, "Skip the AI cleanup pass")
	convertCmd.Flags().StringVar(&cleanupPromptFile, "cleanup-prompt-file", "", "File with a custom cleanup system prompt")
	convertCmd.Flags().StringVar(&templateFile, "template-file", "", "File with a custom batch prompt template")

	convertCmd.Flags().BoolVar(&keepSource, "keep-source", false, "Embed source sentences next to translations")
	convertCmd.Flags().BoolVar(&keepMarkup, "keep-markup", false, "Do not flatten Markdown input")
	convertCmd.Flags().BoolVar(&addSentinel, "sentinel", false, "Insert a disposable sentinel sentence before the text")

	convertCmd.Flags().String("db", "./data/perebook.db", "Database path for the sentence cache and glossary")
	convertCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the sentence translation cache")
	convertCmd.Flags().BoolVar(&useGlossary, "glossary", true, "Apply stored glossary terms to translations")

	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")
	convertCmd.MarkFlagRequired("target")

	viper.BindPFlag("backend", convertCmd.Flags().Lookup("backend"))
	viper.BindPFlag("model", convertCmd.Flags().Lookup("model"))
	viper.BindPFlag("ollama-url", convertCmd.Flags().Lookup("ollama-url"))
	viper.BindPFlag("openrouter-key", convertCmd.Flags().Lookup("openrouter-key"))
	viper.BindPFlag("openai-key", convertCmd.Flags().Lookup("openai-key"))
	viper.BindPFlag("db", convertCmd.Flags().Lookup("db"))
}
