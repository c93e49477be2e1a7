// Package extract provides text extraction from various document formats.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format enumerates the document formats the extractor knows about.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatRTF     Format = "rtf"
	FormatXLSX    Format = "xlsx"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

// ErrUnsupportedFormat is returned for formats without a handler. Callers
// processing a batch should skip the file rather than abort.
var ErrUnsupportedFormat = errors.New("unsupported format")

// DetectFormat maps a file's extension to a Format. Unknown extensions map
// to FormatUnknown, never to an error.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".rtf":
		return FormatRTF
	case ".xlsx":
		return FormatXLSX
	case ".txt", ".md", ".rst":
		return FormatText
	default:
		return FormatUnknown
	}
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Returns ErrUnsupportedFormat (wrapped) for formats without a handler, and
// a wrapped error if the file cannot be read or decoded.
func (e *Extractor) Extract(path string, format Format) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, format)
}

// ExtractBytes extracts text from content in the given format.
func (e *Extractor) ExtractBytes(content []byte, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(content)
	case FormatDOCX:
		return extractDOCX(content)
	case FormatRTF:
		return extractRTF(content)
	case FormatXLSX:
		return extractExcel(content)
	case FormatText:
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
