// Package chunker plans how a large text is split into paragraph-aligned
// chunks small enough to process with a single AI call. Paragraphs are the
// atomic unit: a chunk never cuts a paragraph in half, and a paragraph that
// alone exceeds the budget is emitted as its own oversized chunk rather
// than truncated.
package chunker

import (
	"strings"
)

const (
	// DefaultMaxChars is the per-chunk character budget used when the
	// caller does not supply one.
	DefaultMaxChars = 2500

	// separator joins paragraphs inside a chunk and is counted against
	// the budget like any other text.
	separator = "\n\n"
)

// Chunk is one planned unit of work. Ordinal is the 0-based position of the
// chunk within the plan and is stable for a given input.
type Chunk struct {
	Text    string
	Ordinal int
}

// Plan splits text into chunks of at most maxChars unicode code points,
// accumulating whole paragraphs greedily: a paragraph that would push the
// current chunk past the budget starts a new chunk instead. Paragraph
// boundaries are blank lines. A single paragraph longer than maxChars is
// emitted whole as its own chunk; input is never truncated.
//
// If maxChars <= 0, DefaultMaxChars is used. Whitespace-only input yields
// an empty plan. Plan is pure: equal inputs produce equal plans.
func Plan(text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	paragraphs := SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, Chunk{Text: current.String(), Ordinal: len(chunks)})
		current.Reset()
		currentLen = 0
	}

	for _, para := range paragraphs {
		paraLen := len([]rune(para))

		if currentLen == 0 {
			current.WriteString(para)
			currentLen = paraLen
			continue
		}

		if currentLen+len(separator)+paraLen > maxChars {
			flush()
			current.WriteString(para)
			currentLen = paraLen
			continue
		}

		current.WriteString(separator)
		current.WriteString(para)
		currentLen += len(separator) + paraLen
	}
	flush()

	return chunks
}

// SplitParagraphs splits text on blank lines into trimmed, non-empty
// paragraphs. Single newlines inside a paragraph are preserved; \r\n line
// endings are accepted. Runs of consecutive blank lines count as one
// boundary.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	var lines []string

	flush := func() {
		if len(lines) == 0 {
			return
		}
		para := strings.TrimSpace(strings.Join(lines, "\n"))
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
		lines = lines[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return paragraphs
}
