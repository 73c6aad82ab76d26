// Package merge appends an auxiliary trip receipt to its principal invoice
// PDF and names the output deterministically.
package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFMerger merges PDFs via pdfcpu. The zero value is ready to use.
type PDFMerger struct{}

// NewPDFMerger returns the production merge sink.
func NewPDFMerger() *PDFMerger {
	return &PDFMerger{}
}

// Merge concatenates the principal and auxiliary documents into dest.
func (*PDFMerger) Merge(principal, auxiliary, dest string) error {
	if err := api.MergeCreateFile([]string{principal, auxiliary}, dest, false, nil); err != nil {
		return fmt.Errorf("merge pdf: %w", err)
	}
	return nil
}

// SafeName builds the deterministic merged-file name {number}_{amount}.pdf,
// sanitized of path-breaking characters. A missing number becomes "NoNum".
func SafeName(number string, amount float64) string {
	if number == "" {
		number = "NoNum"
	}
	name := number + "_" + strconv.FormatFloat(amount, 'f', -1, 64) + ".pdf"
	return strings.NewReplacer(":", "", "/", "_", "\\", "_").Replace(name)
}
