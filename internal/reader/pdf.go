// Package reader provides the raw-text and structured-field readers for
// source documents. Read failures surface as absent results, never as errors
// that could abort a batch.
package reader

import (
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts first-page text from PDF files.
type PDFText struct{}

// NewPDFText returns the production PDF text reader.
func NewPDFText() *PDFText {
	return &PDFText{}
}

// FirstPageText returns the text of the document's first page, or "" when the
// file cannot be opened or carries no extractable text (scanned image).
func (*PDFText) FirstPageText(path string) string {
	f, r, err := pdf.Open(path)
	if err != nil {
		slog.Debug("pdf open failed", "path", path, "error", err)
		return ""
	}
	defer func() { _ = f.Close() }()

	if r.NumPage() < 1 {
		return ""
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		slog.Debug("pdf text extraction failed", "path", path, "error", err)
		return ""
	}
	return text
}
