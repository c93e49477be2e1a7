package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxDefaultDocumentPath is where the main body lives in most .docx files.
const docxDefaultDocumentPath = "word/document.xml"

// docxMainContentType identifies the main document part in [Content_Types].xml.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wtTag matches <w:t ...>text</w:t> regardless of run or paragraph attributes.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// overridePartName extracts the PartName of the main-document Override, in
// either attribute order.
var overridePartName = []*regexp.Regexp{
	regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`),
	regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`),
}

// extractDOCX extracts text from .docx bytes. A DOCX is a ZIP whose main
// document part holds the body as OOXML; we collect every <w:t> text node so
// content survives arbitrary paragraph and run attributes. (Paragraph-level
// regexes break on real files, where <w:p> always carries attributes.)
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := docxMainDocumentPath(zr)
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	parts := wtTag.FindAllSubmatch(docXML, -1)
	if len(parts) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.Write(bytes.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String()), nil
}

// docxMainDocumentPath resolves the main document part from
// [Content_Types].xml, falling back to the conventional path.
func docxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, "[Content_Types].xml")
	if err != nil || data == nil {
		return docxDefaultDocumentPath
	}
	for _, re := range overridePartName {
		if m := re.FindSubmatch(data); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultDocumentPath
}

// readZipFile returns the contents of name within zr, or nil if absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}
