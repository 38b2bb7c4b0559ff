// Package markdown flattens Markdown input into plain prose while keeping
// the structural lines the chapter splitter relies on.
package markdown

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Flatten converts Markdown to blank-line separated prose paragraphs.
// Level-1 headings survive as "# Title" lines and thematic breaks become a
// "***" divider line; all inline markup is stripped.
func Flatten(src []byte) string {
	ext := parser.CommonExtensions | parser.Attributes
	doc := parser.NewWithExtensions(ext).Parse(src)

	var blocks []string
	for _, node := range doc.GetChildren() {
		switch n := node.(type) {
		case *ast.Heading:
			title := blockText(n)
			if title == "" {
				continue
			}
			if n.Level == 1 {
				blocks = append(blocks, "# "+title)
			} else {
				blocks = append(blocks, title)
			}
		case *ast.HorizontalRule:
			blocks = append(blocks, "***")
		default:
			if text := blockText(node); text != "" {
				blocks = append(blocks, text)
			}
		}
	}

	return strings.Join(blocks, "\n\n")
}

// blockText renders one block node to HTML and strips the markup back out.
// No smartypants: source punctuation must reach the translator unchanged.
func blockText(node ast.Node) string {
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.UseXHTML})
	rendered := markdown.Render(node, renderer)
	return strings.TrimSpace(stdhtml.UnescapeString(StripHTMLTags(string(rendered))))
}

func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}
