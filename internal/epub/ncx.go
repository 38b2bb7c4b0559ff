package epub

import (
	"fmt"
	"strings"
)

// ncxDoc renders OEBPS/toc.ncx with one navPoint per chapter, playOrder
// matching the spine.
func ncxDoc(book Book, identifier string) []byte {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd">
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
`)
	fmt.Fprintf(&sb, "    <meta name=\"dtb:uid\" content=\"%s\"/>\n", identifier)
	sb.WriteString(`    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
`)
	fmt.Fprintf(&sb, "  <docTitle><text>%s</text></docTitle>\n", escapeXML(book.Title))
	sb.WriteString("  <navMap>\n")
	for i, ch := range book.Chapters {
		heading := ch.Title
		if strings.TrimSpace(heading) == "" {
			heading = fmt.Sprintf("Chapter %d", i+1)
		}
		heading = NormalizeHeading(heading)
		fmt.Fprintf(&sb, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i+1, i+1)
		fmt.Fprintf(&sb, "      <navLabel><text>%s</text></navLabel>\n", escapeXML(heading))
		fmt.Fprintf(&sb, "      <content src=\"chapter%d.xhtml\"/>\n", i+1)
		sb.WriteString("    </navPoint>\n")
	}
	sb.WriteString("  </navMap>\n</ncx>\n")

	return []byte(sb.String())
}
