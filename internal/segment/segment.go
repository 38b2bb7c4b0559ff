// Package segment splits cleaned text into the narration units that drive
// translation and highlighting: paragraphs on blank lines, sentences via
// Unicode sentence boundaries (UAX #29) with a small locale tailoring for
// ordinal periods. Output order follows document order.
package segment

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/sentences"
	"golang.org/x/text/language"

	"github.com/valpere/perebook/internal/chunker"
)

// Granularity selects the unit of segmentation.
type Granularity string

const (
	// Sentence splits each paragraph into sentences. This is the default.
	Sentence Granularity = "sentence"
	// Paragraph keeps whole paragraphs as single segments.
	Paragraph Granularity = "paragraph"
)

// shortFragmentRunes is the length at or below which a fragment is treated
// as segmentation noise unless it begins with an uppercase letter.
const shortFragmentRunes = 3

// ordinalPeriodLanguages lists primary language subtags whose orthography
// writes ordinals with a trailing period ("3. Mai"), which the default
// Unicode rules misread as a sentence end.
var ordinalPeriodLanguages = map[string]bool{
	"cs": true, "da": true, "de": true, "et": true, "fi": true,
	"hr": true, "hu": true, "lv": true, "nb": true, "nn": true,
	"no": true, "pl": true, "ru": true, "sk": true, "sl": true,
	"uk": true,
}

// ResolveTag parses a user-supplied locale into a BCP-47 tag, falling back
// to English when the input is empty or malformed. It is the single place
// locale strings become language.Tag values for the rest of the pipeline.
func ResolveTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		return language.English
	}
	return tag
}

// Split segments text into narration units in document order. Text is
// first divided into paragraphs on blank lines; empty paragraphs are
// skipped. With Paragraph granularity each paragraph is one segment. With
// Sentence granularity (the default for unknown values) each paragraph is
// split on Unicode sentence boundaries; soft line wraps inside a paragraph
// are collapsed to spaces first. Fragments that are empty, or no longer
// than three runes without an uppercase first letter, are dropped.
func Split(text, locale string, g Granularity) []string {
	paragraphs := chunker.SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	if g == Paragraph {
		return paragraphs
	}

	base, _ := ResolveTag(locale).Base()
	mergeOrdinals := ordinalPeriodLanguages[base.String()]

	var out []string
	for _, para := range paragraphs {
		out = append(out, splitSentences(para, mergeOrdinals)...)
	}
	return out
}

func splitSentences(para string, mergeOrdinals bool) []string {
	// Paragraphs are the unit of layout; line breaks inside one are soft
	// wraps, which UAX #29 would otherwise treat as mandatory breaks.
	para = strings.Join(strings.Fields(para), " ")

	var raw []string
	tokens := sentences.FromString(para)
	for tokens.Next() {
		if s := strings.TrimSpace(tokens.Value()); s != "" {
			raw = append(raw, s)
		}
	}

	if mergeOrdinals {
		raw = mergeOrdinalBreaks(raw)
	}

	var out []string
	for _, frag := range raw {
		if keepFragment(frag) {
			out = append(out, frag)
		}
	}
	return out
}

// mergeOrdinalBreaks rejoins fragments that end in a digit followed by a
// period with their successor ("Am 3." + "Mai ging er." → "Am 3. Mai ging
// er."). Runs of ordinals collapse into a single fragment.
func mergeOrdinalBreaks(frags []string) []string {
	var out []string
	for _, frag := range frags {
		if n := len(out); n > 0 && endsWithOrdinal(out[n-1]) {
			out[n-1] = out[n-1] + " " + frag
			continue
		}
		out = append(out, frag)
	}
	return out
}

func endsWithOrdinal(s string) bool {
	runes := []rune(s)
	if len(runes) < 2 || runes[len(runes)-1] != '.' {
		return false
	}
	return unicode.IsDigit(runes[len(runes)-2])
}

// keepFragment drops segmentation noise: empty fragments and very short
// ones that do not look like sentence starts.
func keepFragment(frag string) bool {
	if frag == "" {
		return false
	}
	runes := []rune(frag)
	if len(runes) > shortFragmentRunes {
		return true
	}
	return unicode.IsUpper(runes[0])
}
