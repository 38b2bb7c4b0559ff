package translator

import (
	"regexp"
	"strings"
)

// lineNumberRe matches the numbering prefix models put on list replies:
// "1. ", "2) ", possibly indented.
var lineNumberRe = regexp.MustCompile(`^\s*\d+[.)]\s*`)

// parseNumbered extracts the content lines from a numbered-list response:
// lines are split on newlines and trimmed, blank lines and bare numbering
// ("3.") are dropped, and leading numbering is stripped from the rest.
// Lines the model left unnumbered are kept as they are.
func parseNumbered(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(lineNumberRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// firstNonEmptyLine returns the first line with content, with numbering
// stripped, or "" when the response holds nothing usable.
func firstNonEmptyLine(text string) string {
	for _, line := range parseNumbered(text) {
		return line
	}
	return ""
}
