package ocf_test

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/valpere/perebook/internal/ocf"
)

func sampleEntries() []ocf.Entry {
	return []ocf.Entry{
		{Name: ocf.MimetypeName, Data: []byte(ocf.MimetypeContent)},
		{Name: "META-INF/container.xml", Data: []byte("<container/>"), Compress: true},
		{Name: "OEBPS/chapter1.xhtml", Data: []byte(strings.Repeat("<p>Речення.</p>\n", 50)), Compress: true},
		{Name: "OEBPS/empty.txt", Data: nil, Compress: true},
	}
}

// --- Write tests ---

func TestWrite_ReadableByStandardReader(t *testing.T) {
	entries := sampleEntries()
	data, err := ocf.Bytes(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("standard reader rejected archive: %v", err)
	}
	if len(r.File) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(r.File))
	}
	for i, f := range r.File {
		if f.Name != entries[i].Name {
			t.Errorf("entry %d: expected name %q, got %q", i, entries[i].Name, f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %q: %v", f.Name, err)
		}
		got, err := io.ReadAll(rc)
		if cerr := rc.Close(); cerr != nil {
			t.Errorf("close %q (CRC check): %v", f.Name, cerr)
		}
		if err != nil {
			t.Fatalf("read %q: %v", f.Name, err)
		}
		if !bytes.Equal(got, entries[i].Data) {
			t.Errorf("entry %q: content mismatch after round-trip", f.Name)
		}
	}
}

func TestWrite_MimetypeStoredFirst(t *testing.T) {
	data, err := ocf.Bytes(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := r.File[0]
	if first.Name != ocf.MimetypeName {
		t.Errorf("expected mimetype first, got %q", first.Name)
	}
	if first.Method != zip.Store {
		t.Errorf("mimetype must use method Store, got %d", first.Method)
	}
}

func TestWrite_MimetypeBytesAtFixedOffset(t *testing.T) {
	// Format sniffers read the mimetype string directly at byte 38:
	// 30-byte local header + 8-byte name.
	data, err := ocf.Bytes(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) < 58 {
		t.Fatalf("archive too short: %d bytes", len(data))
	}
	if got := string(data[38:58]); got != ocf.MimetypeContent {
		t.Errorf("expected %q at offset 38, got %q", ocf.MimetypeContent, got)
	}
}

func TestWrite_NonMimetypeEntriesDeflated(t *testing.T) {
	data, err := ocf.Bytes(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range r.File[1:] {
		want := zip.Deflate
		if f.UncompressedSize64 == 0 {
			want = zip.Store
		}
		if f.Method != uint16(want) {
			t.Errorf("entry %q: expected method %d, got %d", f.Name, want, f.Method)
		}
	}
}

func TestWrite_SignaturesInPlace(t *testing.T) {
	data, err := ocf.Bytes(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x50, 0x4b, 0x03, 0x04}) {
		t.Errorf("archive must start with the local header signature")
	}
	// No comment, so the EOCD record is the last 22 bytes.
	eocd := data[len(data)-22:]
	if !bytes.HasPrefix(eocd, []byte{0x50, 0x4b, 0x05, 0x06}) {
		t.Errorf("expected EOCD signature in final record, got % x", eocd[:4])
	}
}

func TestWrite_Deterministic(t *testing.T) {
	a, err := ocf.Bytes(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ocf.Bytes(sampleEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same entries must serialize to identical bytes")
	}
}

func TestWrite_RejectsMissingMimetype(t *testing.T) {
	entries := []ocf.Entry{
		{Name: "OEBPS/chapter1.xhtml", Data: []byte("x"), Compress: true},
	}
	if _, err := ocf.Bytes(entries); err == nil {
		t.Error("expected error when mimetype is not first")
	}
}

func TestWrite_RejectsCompressedMimetype(t *testing.T) {
	entries := []ocf.Entry{
		{Name: ocf.MimetypeName, Data: []byte(ocf.MimetypeContent), Compress: true},
	}
	if _, err := ocf.Bytes(entries); err == nil {
		t.Error("expected error for compressed mimetype")
	}
}

func TestWrite_RejectsEmptyEntryList(t *testing.T) {
	if _, err := ocf.Bytes(nil); err == nil {
		t.Error("expected error for empty entry list")
	}
}

func TestWrite_RejectsUnnamedEntry(t *testing.T) {
	entries := []ocf.Entry{
		{Name: ocf.MimetypeName, Data: []byte(ocf.MimetypeContent)},
		{Name: "", Data: []byte("x")},
	}
	if _, err := ocf.Bytes(entries); err == nil {
		t.Error("expected error for unnamed entry")
	}
}

func TestWrite_UnicodeContentSurvives(t *testing.T) {
	text := "Переклад роману. Ґудзик, їжак, єнот.\n日本語もある。"
	entries := []ocf.Entry{
		{Name: ocf.MimetypeName, Data: []byte(ocf.MimetypeContent)},
		{Name: "OEBPS/chapter1.xhtml", Data: []byte(text), Compress: true},
	}
	data, err := ocf.Bytes(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc, err := r.File[1].Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != text {
		t.Errorf("unicode content mangled: %q", got)
	}
}

func TestWrite_FailingWriterSurfacesError(t *testing.T) {
	entries := sampleEntries()
	if err := ocf.Write(failWriter{}, entries); err == nil {
		t.Error("expected error from failing writer")
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}
