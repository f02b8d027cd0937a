package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/writeitgreat/proposal-eval/internal/models"
)

// buildDOCX assembles a minimal valid DOCX (a ZIP containing
// word/document.xml) holding the given paragraphs.
func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(fmt.Sprintf("<p><r><t>%s</t></r></p>", p))
	}
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><document><body>%s</body></document>`, body.String())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("failed to create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(doc)); err != nil {
		t.Fatalf("failed to write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}

	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	long := strings.Repeat("This proposal describes a book about practical beekeeping. ", 20)
	data := buildDOCX(t, long)

	ext := New(500)
	result, failure := ext.Extract(data, models.FormatDOCX)
	if failure != nil {
		t.Fatalf("Extract returned failure: %v", failure)
	}

	if result.CharCount < 500 {
		t.Errorf("char count = %d, want >= 500", result.CharCount)
	}
	if !strings.Contains(result.Text, "beekeeping") {
		t.Errorf("extracted text missing expected content")
	}
}

func TestExtractInsufficientText(t *testing.T) {
	data := buildDOCX(t, "Too short to evaluate.")

	ext := New(500)
	_, failure := ext.Extract(data, models.FormatDOCX)
	if failure == nil {
		t.Fatalf("Extract should fail on short text")
	}
	if failure.Reason != ReasonInsufficientText {
		t.Errorf("reason = %s, want %s", failure.Reason, ReasonInsufficientText)
	}
}

func TestExtractCorruptDOCX(t *testing.T) {
	ext := New(500)

	_, failure := ext.Extract([]byte("this is not a zip archive at all"), models.FormatDOCX)
	if failure == nil || failure.Reason != ReasonCorruptOrEncrypted {
		t.Errorf("corrupt DOCX: got %v, want %s", failure, ReasonCorruptOrEncrypted)
	}
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("word/styles.xml")
	f.Write([]byte("<styles/>"))
	zw.Close()

	ext := New(500)
	_, failure := ext.Extract(buf.Bytes(), models.FormatDOCX)
	if failure == nil || failure.Reason != ReasonCorruptOrEncrypted {
		t.Errorf("DOCX without document.xml: got %v, want %s", failure, ReasonCorruptOrEncrypted)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	ext := New(500)

	_, failure := ext.Extract([]byte("%PDF-1.4 truncated garbage"), models.FormatPDF)
	if failure == nil || failure.Reason != ReasonCorruptOrEncrypted {
		t.Errorf("corrupt PDF: got %v, want %s", failure, ReasonCorruptOrEncrypted)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	ext := New(500)

	_, failure := ext.Extract([]byte("plain text"), models.DocumentFormat("TXT"))
	if failure == nil || failure.Reason != ReasonUnsupportedFormat {
		t.Errorf("unsupported format: got %v, want %s", failure, ReasonUnsupportedFormat)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	ext := New(500)

	_, failure := ext.Extract(nil, models.FormatPDF)
	if failure == nil || failure.Reason != ReasonCorruptOrEncrypted {
		t.Errorf("empty document: got %v, want %s", failure, ReasonCorruptOrEncrypted)
	}
}
