package pipeline

import "strings"

// chapterText is one chapter's raw input before the stage sequence runs.
type chapterText struct {
	Title string
	Body  string
}

// splitChapters divides input into chapters on Markdown-style "# " heading
// lines and asterisk divider lines. Text before the first marker becomes an
// untitled leading chapter; without any marker the whole input is one
// untitled chapter.
func splitChapters(text string) []chapterText {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var chapters []chapterText
	var current chapterText
	var body []string

	flush := func() {
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Title != "" || current.Body != "" {
			chapters = append(chapters, current)
		}
		current = chapterText{}
		body = body[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "# "):
			flush()
			current.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		case isDivider(trimmed):
			flush()
		default:
			body = append(body, line)
		}
	}
	flush()

	if len(chapters) == 0 {
		return []chapterText{{}}
	}
	return chapters
}

// isDivider reports whether a trimmed line is a scene divider: three or
// more asterisks and nothing else, spaces between them allowed.
func isDivider(line string) bool {
	stars := 0
	for _, r := range line {
		switch r {
		case '*':
			stars++
		case ' ', '\t':
		default:
			return false
		}
	}
	return stars >= 3
}
