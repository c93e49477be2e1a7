package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"report.pdf":      FormatPDF,
		"notes.DOCX":      FormatDOCX,
		"legacy.rtf":      FormatRTF,
		"sheet.xlsx":      FormatXLSX,
		"readme.txt":      FormatText,
		"doc.md":          FormatText,
		"guide.rst":       FormatText,
		"image.png":       FormatUnknown,
		"noextension":     FormatUnknown,
		"dir/archive.zip": FormatUnknown,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Hello world\nLine 2"), FormatText)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), FormatText)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("\x89PNG..."), FormatUnknown)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.ExtractBytes(buf.Bytes(), FormatXLSX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	got, err := e.Extract(path, DetectFormat(path))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract("/nonexistent/path/file.txt", FormatText)
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

// minimalDocx returns a minimal .docx zip with word/document.xml containing the given text in <w:t> tags.
func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes(minimalDocx("Searchable docx content"), FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Searchable docx content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxParagraphAttributes(t *testing.T) {
	// Real-world paragraphs carry attributes (<w:p w:rsidR="...">); the
	// <w:t> scan must be unaffected by them.
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p w:rsidR="00AB12"><w:r><w:t xml:space="preserve">Attributed paragraph</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()

	e := NewExtractor()
	got, err := e.ExtractBytes(buf.Bytes(), FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Attributed paragraph" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxWithContentTypesOverride(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/word/document2.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	fw, _ := w.Create("word/document2.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Content from document2</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()

	e := NewExtractor()
	got, err := e.ExtractBytes(buf.Bytes(), FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Content from document2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("not a zip"), FormatDOCX)
	if err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestExtractBytes_rtf(t *testing.T) {
	rtf := `{\rtf1\ansi{\fonttbl{\f0 Arial;}}\f0 Hello \b World\b0.\par Second line.}`
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte(rtf), FormatRTF)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello World.\nSecond line." {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_rtfEscapes(t *testing.T) {
	rtf := `{\rtf1 caf\'e9 \u8212? dash \{braces\}}`
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte(rtf), FormatRTF)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café — dash {braces}" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_rtfSkipsMetadataGroups(t *testing.T) {
	rtf := `{\rtf1{\info{\author Nobody}}{\colortbl;\red0\green0\blue0;}Visible text}`
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte(rtf), FormatRTF)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Visible text" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_rtfNotRTF(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("plain text, no header"), FormatRTF)
	if err == nil {
		t.Error("expected error for missing RTF header")
	}
}
