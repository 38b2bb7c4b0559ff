package epub

import (
	"fmt"
	"strings"
)

// chapterXHTML renders one chapter. counter is the page-global sentence
// counter shared across chapters; the first chapter may prepend the
// sentinel block at id s0.
func chapterXHTML(book Book, ch Chapter, index int, counter *int) []byte {
	heading := ch.Title
	if strings.TrimSpace(heading) == "" {
		heading = fmt.Sprintf("Chapter %d", index+1)
	}
	heading = NormalizeHeading(heading)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
`)
	fmt.Fprintf(&sb, "<html xmlns=\"http://www.w3.org/1999/xhtml\" xml:lang=\"%s\">\n", escapeXML(book.Language))
	sb.WriteString("<head>\n")
	fmt.Fprintf(&sb, "  <title>%s</title>\n", escapeXML(heading))
	sb.WriteString("  <link rel=\"stylesheet\" type=\"text/css\" href=\"style.css\"/>\n")
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&sb, "  <h2 class=\"chapter-title\">%s</h2>\n", escapeXML(heading))

	if index == 0 && book.Sentinel {
		fmt.Fprintf(&sb, "  <p id=\"s%d\" class=\"sentinel\">%s</p>\n", *counter, escapeXML(SentinelText))
		*counter++
	}

	for _, pair := range ch.Pairs {
		text := pair.Target
		if text == "" {
			text = pair.Source
		}
		fmt.Fprintf(&sb, "  <p id=\"s%d\">%s", *counter, escapeXML(text))
		if book.KeepSource && pair.Target != "" && pair.Source != "" {
			fmt.Fprintf(&sb, " <span class=\"src\" xml:lang=\"%s\">%s</span>",
				escapeXML(book.SourceLanguage), escapeXML(pair.Source))
		}
		sb.WriteString("</p>\n")
		*counter++
	}

	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String())
}

// NormalizeHeading gives a chapter heading terminal punctuation so
// narration does not run it into the first sentence. Headings already
// ending in one of . ! ? : ; pass through unchanged.
func NormalizeHeading(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return title
	}
	switch title[len(title)-1] {
	case '.', '!', '?', ':', ';':
		return title
	}
	return title + "."
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML makes text safe inside element content and attribute values.
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
