package engine

import "github.com/fapiaowuyou/fapiao-recon/internal/model"

// TextReader extracts the first-page text of a PDF. Implementations return ""
// for unreadable or image-only documents rather than an error.
type TextReader interface {
	FirstPageText(path string) string
}

// InvoiceReader parses a structured invoice document into a record.
type InvoiceReader interface {
	Read(path, scope string) (*model.Record, error)
}

// Merger concatenates a principal document and an auxiliary receipt into dest.
type Merger interface {
	Merge(principal, auxiliary, dest string) error
}
