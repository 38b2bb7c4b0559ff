// Package prompt renders the prompts sent to the AI backend. Templates are
// plain strings with literal placeholders ({sourceLang}, {targetLang},
// {count}, {sentences}, {context}) replaced by simple substitution, so
// custom templates loaded from disk need no template-language knowledge.
package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultBatchTemplate asks for one numbered translation line per input
// sentence. The numbering contract is what the response parser relies on.
const DefaultBatchTemplate = `You are a professional literary translator. Translate the following {count} numbered sentences from {sourceLang} to {targetLang}.

Rules:
- Reply with exactly {count} numbered lines, one translation per sentence.
- Keep the numbering and the sentence order.
- Do not add explanations, notes, or blank lines.

{context}Sentences:
{sentences}`

// DefaultSingleTemplate is the simplified prompt used when one sentence is
// retried on its own.
const DefaultSingleTemplate = `Translate this sentence from {sourceLang} to {targetLang}.
Reply with the translation only, nothing else.

{context}Sentence: {sentences}`

// DefaultCleanupSystem instructs the backend to restore scanned or
// converted text without rewriting it.
const DefaultCleanupSystem = `You are a text restoration assistant. Clean the text you receive: fix OCR artifacts, join words broken across line breaks, drop page numbers and running headers, and normalize spacing. Keep the original language, wording, and meaning. Reply with the cleaned text only, no commentary.`

// DefaultTranslateSystem is the base system prompt for translation calls.
// Glossary terms and markup hints are appended to it when present.
const DefaultTranslateSystem = `You are a careful literary translator. Preserve the tone, register, and meaning of the original text.`

// RenderBatch fills tmpl for a batch of sentences. Sentences are numbered
// from 1; context sentences (may be empty) are presented as
// non-translatable preceding text.
func RenderBatch(tmpl, sourceLang, targetLang string, sentences, context []string) string {
	return strings.NewReplacer(
		"{sourceLang}", sourceLang,
		"{targetLang}", targetLang,
		"{count}", fmt.Sprintf("%d", len(sentences)),
		"{sentences}", NumberLines(sentences),
		"{context}", contextBlock(context),
	).Replace(tmpl)
}

// RenderSingle fills tmpl for one sentence; {count} is fixed to 1 and
// {sentences} holds the bare sentence without numbering.
func RenderSingle(tmpl, sourceLang, targetLang, sentence string, context []string) string {
	return strings.NewReplacer(
		"{sourceLang}", sourceLang,
		"{targetLang}", targetLang,
		"{count}", "1",
		"{sentences}", sentence,
		"{context}", contextBlock(context),
	).Replace(tmpl)
}

// NumberLines renders sentences as a 1-based numbered list, one per line.
func NumberLines(sentences []string) string {
	var sb strings.Builder
	for i, s := range sentences {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func contextBlock(context []string) string {
	if len(context) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Context (preceding sentences, do NOT translate these):\n")
	for _, s := range context {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// AppendGlossary adds a terminology block to a system prompt so the
// backend uses fixed translations for known terms. Terms are emitted in
// sorted order to keep prompts deterministic.
func AppendGlossary(systemPrompt string, terms map[string]string) string {
	if len(terms) == 0 {
		return systemPrompt
	}

	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s → %s\n", k, terms[k])
	}
	return strings.TrimRight(sb.String(), "\n")
}
