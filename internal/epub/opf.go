package epub

import (
	"fmt"
	"strings"
)

// packageDoc renders OEBPS/content.opf: metadata, a manifest item per
// chapter plus stylesheet and NCX, and the spine in chapter order.
func packageDoc(book Book, identifier string) []byte {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" unique-identifier="BookId" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", escapeXML(book.Title))
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", escapeXML(book.Language))
	fmt.Fprintf(&sb, "    <dc:identifier id=\"BookId\" opf:scheme=\"UUID\">%s</dc:identifier>\n", identifier)
	if book.Author != "" {
		fmt.Fprintf(&sb, "    <dc:creator opf:role=\"aut\">%s</dc:creator>\n", escapeXML(book.Author))
	}
	sb.WriteString("  </metadata>\n  <manifest>\n")
	sb.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	sb.WriteString("    <item id=\"css\" href=\"style.css\" media-type=\"text/css\"/>\n")
	for i := range book.Chapters {
		fmt.Fprintf(&sb, "    <item id=\"chapter%d\" href=\"chapter%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i+1, i+1)
	}
	sb.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for i := range book.Chapters {
		fmt.Fprintf(&sb, "    <itemref idref=\"chapter%d\"/>\n", i+1)
	}
	sb.WriteString("  </spine>\n</package>\n")

	return []byte(sb.String())
}
