// Package epub assembles the bilingual, sentence-addressable book. Every
// sentence pair becomes one addressable block (<p id="sK">) with a
// page-global counter, so a narration engine can highlight sentence K in
// any chapter without parsing prose. The assembler produces the ordered
// entry list for the container writer; it does not touch the filesystem.
package epub

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/valpere/perebook/internal/ocf"
	"github.com/valpere/perebook/internal/translator"
)

// SentinelText is the disposable marker emitted as block s0 when
// Book.Sentinel is set. Narration consumers skip it; readers see a scene
// divider.
const SentinelText = "* * *"

// Chapter is one spine item worth of aligned sentences.
type Chapter struct {
	Title string
	Pairs []translator.SentencePair
}

// Book is everything the assembler needs. Language is the target language
// tag used for the document; SourceLanguage tags embedded source spans
// when KeepSource is set.
type Book struct {
	Title          string
	Author         string
	Language       string
	SourceLanguage string
	KeepSource     bool
	Sentinel       bool
	Chapters       []Chapter
}

// Assemble renders book into the ordered container entries: mimetype
// first, then META-INF/container.xml, the package document, stylesheet,
// NCX, and one XHTML file per chapter. Each build gets a fresh UUID
// identifier. A book without sentences is an error.
func Assemble(book Book) ([]ocf.Entry, error) {
	total := 0
	for _, ch := range book.Chapters {
		total += len(ch.Pairs)
	}
	if total == 0 {
		return nil, fmt.Errorf("book has no sentences to assemble")
	}
	if book.Title == "" {
		book.Title = "Untitled"
	}
	if book.Language == "" {
		book.Language = "en"
	}

	identifier := "urn:uuid:" + uuid.New().String()

	entries := []ocf.Entry{
		{Name: ocf.MimetypeName, Data: []byte(ocf.MimetypeContent)},
		{Name: "META-INF/container.xml", Data: []byte(containerXML), Compress: true},
		{Name: "OEBPS/content.opf", Data: packageDoc(book, identifier), Compress: true},
		{Name: "OEBPS/style.css", Data: []byte(stylesheet), Compress: true},
		{Name: "OEBPS/toc.ncx", Data: ncxDoc(book, identifier), Compress: true},
	}

	counter := 0
	for i, ch := range book.Chapters {
		entries = append(entries, ocf.Entry{
			Name:     fmt.Sprintf("OEBPS/chapter%d.xhtml", i+1),
			Data:     chapterXHTML(book, ch, i, &counter),
			Compress: true,
		})
	}

	return entries, nil
}

const containerXML = `<?xml version="1.0" encoding="utf-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

const stylesheet = `body {
  font-family: Georgia, serif;
  line-height: 1.6;
  margin: 1em;
}

h2.chapter-title {
  text-align: center;
  margin: 2em 0 1.5em 0;
}

p {
  margin: 0.4em 0;
  text-indent: 0;
}

p.sentinel {
  text-align: center;
  color: #888;
  margin: 1.5em 0;
}

span.src {
  display: block;
  font-size: 0.85em;
  font-style: italic;
  color: #555;
  margin-top: 0.1em;
}
`
