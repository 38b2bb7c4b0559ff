package epub_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/valpere/perebook/internal/epub"
	"github.com/valpere/perebook/internal/ocf"
	"github.com/valpere/perebook/internal/translator"
)

func pairsOf(targets ...string) []translator.SentencePair {
	pairs := make([]translator.SentencePair, len(targets))
	for i, t := range targets {
		pairs[i] = translator.SentencePair{
			Index:  uint32(i),
			Source: "src " + t,
			Target: t,
		}
	}
	return pairs
}

func entryByName(t *testing.T, entries []ocf.Entry, name string) ocf.Entry {
	t.Helper()
	for _, e := range entries {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entry %q not found in %v", name, entryNames(entries))
	return ocf.Entry{}
}

func entryNames(entries []ocf.Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func basicBook() epub.Book {
	return epub.Book{
		Title:          "Проба",
		Language:       "uk",
		SourceLanguage: "en",
		Chapters: []epub.Chapter{
			{Title: "Розділ перший", Pairs: pairsOf("Один.", "Два.")},
			{Title: "Розділ другий", Pairs: pairsOf("Три.")},
		},
	}
}

// --- Assemble tests ---

func TestAssemble_EntryLayout(t *testing.T) {
	entries, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"mimetype",
		"META-INF/container.xml",
		"OEBPS/content.opf",
		"OEBPS/style.css",
		"OEBPS/toc.ncx",
		"OEBPS/chapter1.xhtml",
		"OEBPS/chapter2.xhtml",
	}
	got := entryNames(entries)
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if entries[0].Compress {
		t.Error("mimetype entry must not be compressed")
	}
	if string(entries[0].Data) != ocf.MimetypeContent {
		t.Errorf("mimetype content wrong: %q", entries[0].Data)
	}
	for _, e := range entries[1:] {
		if !e.Compress {
			t.Errorf("entry %q should be compressed", e.Name)
		}
	}
}

func TestAssemble_ContainerPointsAtPackage(t *testing.T) {
	entries, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	container := string(entryByName(t, entries, "META-INF/container.xml").Data)
	if !strings.Contains(container, `full-path="OEBPS/content.opf"`) {
		t.Errorf("container must reference the package document:\n%s", container)
	}
}

func TestAssemble_PackageManifestAndSpine(t *testing.T) {
	entries, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opf := string(entryByName(t, entries, "OEBPS/content.opf").Data)

	for _, want := range []string{
		"<dc:title>Проба</dc:title>",
		"<dc:language>uk</dc:language>",
		`href="chapter1.xhtml"`,
		`href="chapter2.xhtml"`,
		`href="toc.ncx"`,
		`<itemref idref="chapter1"/>`,
		`<itemref idref="chapter2"/>`,
	} {
		if !strings.Contains(opf, want) {
			t.Errorf("package document missing %q:\n%s", want, opf)
		}
	}
	if !strings.Contains(opf, "urn:uuid:") {
		t.Errorf("identifier should be a urn:uuid value:\n%s", opf)
	}
	// Spine order: chapter1 before chapter2.
	if strings.Index(opf, `idref="chapter1"`) > strings.Index(opf, `idref="chapter2"`) {
		t.Errorf("spine out of order:\n%s", opf)
	}
}

func TestAssemble_FreshIdentifierPerBuild(t *testing.T) {
	re := regexp.MustCompile(`urn:uuid:[0-9a-f-]{36}`)

	first, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := re.FindString(string(entryByName(t, first, "OEBPS/content.opf").Data))
	b := re.FindString(string(entryByName(t, second, "OEBPS/content.opf").Data))
	if a == "" || b == "" {
		t.Fatalf("identifier not found: %q %q", a, b)
	}
	if a == b {
		t.Error("each build must mint a fresh identifier")
	}
}

func TestAssemble_GlobalSentenceCounter(t *testing.T) {
	entries, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch1 := string(entryByName(t, entries, "OEBPS/chapter1.xhtml").Data)
	ch2 := string(entryByName(t, entries, "OEBPS/chapter2.xhtml").Data)

	if !strings.Contains(ch1, `<p id="s0">Один.`) || !strings.Contains(ch1, `<p id="s1">Два.`) {
		t.Errorf("chapter 1 ids wrong:\n%s", ch1)
	}
	// The counter keeps running across chapter boundaries.
	if !strings.Contains(ch2, `<p id="s2">Три.`) {
		t.Errorf("chapter 2 should continue at s2:\n%s", ch2)
	}
	if strings.Contains(ch2, `<p id="s0"`) {
		t.Errorf("chapter 2 must not restart the counter:\n%s", ch2)
	}
}

func TestAssemble_SentinelShiftsCounter(t *testing.T) {
	book := basicBook()
	book.Sentinel = true

	entries, err := epub.Assemble(book)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch1 := string(entryByName(t, entries, "OEBPS/chapter1.xhtml").Data)

	if !strings.Contains(ch1, `<p id="s0" class="sentinel">* * *</p>`) {
		t.Errorf("sentinel block missing:\n%s", ch1)
	}
	if !strings.Contains(ch1, `<p id="s1">Один.`) {
		t.Errorf("first real sentence should shift to s1:\n%s", ch1)
	}

	ch2 := string(entryByName(t, entries, "OEBPS/chapter2.xhtml").Data)
	if !strings.Contains(ch2, `<p id="s3">Три.`) {
		t.Errorf("later chapters shift too:\n%s", ch2)
	}
	if strings.Contains(ch2, "sentinel") {
		t.Errorf("only chapter 1 carries the sentinel:\n%s", ch2)
	}
}

func TestAssemble_EscapesReservedCharacters(t *testing.T) {
	book := epub.Book{
		Title:    `R&D <"quoted">`,
		Language: "en",
		Chapters: []epub.Chapter{{
			Title: "A & B",
			Pairs: []translator.SentencePair{
				{Index: 0, Source: `x < y`, Target: `5 > 4 & "so" it's fine`},
			},
		}},
	}

	entries, err := epub.Assemble(book)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch := string(entryByName(t, entries, "OEBPS/chapter1.xhtml").Data)
	if !strings.Contains(ch, "5 &gt; 4 &amp; &quot;so&quot; it&apos;s fine") {
		t.Errorf("sentence text not escaped:\n%s", ch)
	}
	opf := string(entryByName(t, entries, "OEBPS/content.opf").Data)
	if !strings.Contains(opf, "R&amp;D &lt;&quot;quoted&quot;&gt;") {
		t.Errorf("title not escaped:\n%s", opf)
	}
}

func TestAssemble_KeepSourceEmbedsOriginal(t *testing.T) {
	book := basicBook()
	book.KeepSource = true

	entries, err := epub.Assemble(book)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch1 := string(entryByName(t, entries, "OEBPS/chapter1.xhtml").Data)
	if !strings.Contains(ch1, `<span class="src" xml:lang="en">src Один.</span>`) {
		t.Errorf("source span missing:\n%s", ch1)
	}
	// Target stays the block text; source is nested inside the same block.
	if !strings.Contains(ch1, `<p id="s0">Один. <span class="src"`) {
		t.Errorf("pair should render as one indexed block:\n%s", ch1)
	}
}

func TestAssemble_WithoutKeepSourceNoSpans(t *testing.T) {
	entries, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch1 := string(entryByName(t, entries, "OEBPS/chapter1.xhtml").Data)
	if strings.Contains(ch1, `class="src"`) {
		t.Errorf("no source spans expected:\n%s", ch1)
	}
}

func TestAssemble_HeadingNormalization(t *testing.T) {
	book := epub.Book{
		Title:    "T",
		Language: "en",
		Chapters: []epub.Chapter{
			{Title: "Chapter One", Pairs: pairsOf("A.")},
			{Title: "Already done!", Pairs: pairsOf("B.")},
			{Title: "", Pairs: pairsOf("C.")},
		},
	}

	entries, err := epub.Assemble(book)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch1 := string(entryByName(t, entries, "OEBPS/chapter1.xhtml").Data)
	if !strings.Contains(ch1, ">Chapter One.</h2>") {
		t.Errorf("heading should gain terminal punctuation:\n%s", ch1)
	}
	ch2 := string(entryByName(t, entries, "OEBPS/chapter2.xhtml").Data)
	if !strings.Contains(ch2, ">Already done!</h2>") {
		t.Errorf("existing punctuation should be kept:\n%s", ch2)
	}
	ch3 := string(entryByName(t, entries, "OEBPS/chapter3.xhtml").Data)
	if !strings.Contains(ch3, ">Chapter 3.</h2>") {
		t.Errorf("empty title should fall back to a numbered heading:\n%s", ch3)
	}

	ncx := string(entryByName(t, entries, "OEBPS/toc.ncx").Data)
	if !strings.Contains(ncx, "<text>Chapter One.</text>") {
		t.Errorf("navLabel should use the normalized heading:\n%s", ncx)
	}
}

func TestAssemble_NCXNavPoints(t *testing.T) {
	entries, err := epub.Assemble(basicBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ncx := string(entryByName(t, entries, "OEBPS/toc.ncx").Data)

	for _, want := range []string{
		`<navPoint id="navpoint-1" playOrder="1">`,
		`<navPoint id="navpoint-2" playOrder="2">`,
		`<content src="chapter1.xhtml"/>`,
		`<content src="chapter2.xhtml"/>`,
		`name="dtb:uid"`,
	} {
		if !strings.Contains(ncx, want) {
			t.Errorf("NCX missing %q:\n%s", want, ncx)
		}
	}
}

func TestAssemble_EmptyBookRejected(t *testing.T) {
	if _, err := epub.Assemble(epub.Book{Title: "x", Language: "en"}); err == nil {
		t.Error("expected error for a book without sentences")
	}
	empty := epub.Book{
		Title:    "x",
		Language: "en",
		Chapters: []epub.Chapter{{Title: "only heading"}},
	}
	if _, err := epub.Assemble(empty); err == nil {
		t.Error("expected error for chapters without sentences")
	}
}

// --- NormalizeHeading tests ---

func TestNormalizeHeading(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Chapter One", "Chapter One."},
		{"Done.", "Done."},
		{"Really?", "Really?"},
		{"Stop!", "Stop!"},
		{"List:", "List:"},
		{"Semi;", "Semi;"},
		{"  Padded  ", "Padded."},
		{"", ""},
	}
	for _, c := range cases {
		if got := epub.NormalizeHeading(c.in); got != c.want {
			t.Errorf("NormalizeHeading(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
