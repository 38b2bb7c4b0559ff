// Package postprocess strips common LLM artifacts from completions before
// the pipeline consumes them. Whole responses are scrubbed of reasoning
// blocks and prompt echoes with CleanResponse; individual parsed lines are
// unwrapped and trimmed with CleanLine.
package postprocess

import (
	"regexp"
	"strings"
)

// CleanResponse removes structural artifacts from a raw completion:
// thinking/reasoning blocks (closed or truncated) and introductory
// instruction echoes. It runs before any line parsing so that numbered
// translation lists are judged on real content only.
func CleanResponse(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	return strings.TrimSpace(text)
}

// CleanLine trims a single parsed line and strips a matching pair of outer
// quotes when the whole line is wrapped in them.
func CleanLine(line string) string {
	return removeQuoteWrapping(strings.TrimSpace(line))
}

// --- thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Tag variants are listed out because RE2 has no backreferences.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag that never closes
// (the model ran out of tokens mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- instruction echoes ---

// echoPatterns match introductory phrases models prepend even when told
// not to. Anchored to the start and requiring a colon to avoid eating
// legitimate content.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:cleaned |corrected |refined |translated )?(?:translation|text|sentences)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:cleaned |corrected |refined )?(?:translation|translated text|cleaned text)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:cleaned |corrected |refined |translated )?(?:translation|text|sentences)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- quote wrapping ---

// removeQuoteWrapping strips one matching pair of outer quotes when the
// entire string is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
