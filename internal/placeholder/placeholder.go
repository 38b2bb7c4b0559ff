// Package placeholder shields structured spans (HTML tags, fenced code
// blocks, inline code) from the translation backend by swapping them for
// numbered markers ([PH0], [PH1], …) the model is told to keep verbatim.
// The batcher protects each sentence before prompting and restores the
// spans afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// fenced code blocks: ```...``` (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```")

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`]+`")

	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`<[^>]+>`)

	// marker reference in translated text
	reMarker = regexp.MustCompile(`\[PH(\d+)\]`)
)

// HasMarkup reports whether text contains spans Protect would capture.
// Sentences of plain prose skip the protect/restore round-trip entirely.
func HasMarkup(text string) bool {
	return reFencedCode.MatchString(text) ||
		reInlineCode.MatchString(text) ||
		reHTMLTag.MatchString(text)
}

// Protect replaces structured spans with [PH0], [PH1], … in order of
// appearance and returns the modified text plus the captured originals for
// Restore. Numbering starts at zero for every call: sentences are
// protected independently.
func Protect(text string) (string, []string) {
	var spans []string

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(spans))
		spans = append(spans, match)
		return id
	}

	// Fenced blocks first (longest spans), then inline code, then tags.
	text = reFencedCode.ReplaceAllStringFunc(text, replace)
	text = reInlineCode.ReplaceAllStringFunc(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)

	return text, spans
}

// Restore substitutes [PHn] markers back with the spans captured by
// Protect. Markers the model dropped simply stay absent; indices outside
// the captured range are left as-is.
func Restore(text string, spans []string) string {
	return reMarker.ReplaceAllStringFunc(text, func(match string) string {
		sub := reMarker.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(spans) {
			return match
		}
		return spans[idx]
	})
}

// Hint returns the instruction appended to a system prompt when any
// sentence in the batch was protected.
func Hint() string {
	return "Preserve all [PHn] markers exactly as they appear; do not translate, move, or remove them."
}

// Missing returns the indices of captured spans whose markers no longer
// appear in the translated text. Callers use it to count structure lost in
// translation.
func Missing(text string, spans []string) []int {
	var missing []int
	for i := range spans {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
