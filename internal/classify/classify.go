// Package classify decides whether a PDF is a trip/reimbursement receipt
// (auxiliary document) or a tax invoice (principal document).
package classify

import (
	"regexp"
	"strings"

	"github.com/fapiaowuyou/fapiao-recon/internal/cntext"
)

// tripKeywords mark a filename as a candidate trip receipt.
var tripKeywords = []string{"行程", "trip", "报销"}

// invoiceNumberRe matches an invoice-number label immediately followed by a
// real number, the strongest content signal that a document is an invoice.
var invoiceNumberRe = regexp.MustCompile(`(?:发票代码|发票号码)[:|]?\d{8,}`)

// IsTripReceipt reports whether the document is an auxiliary trip receipt.
// The filename keyword decides, but document text overrides it: a file named
// 行程报销.pdf that carries invoice markers is still an invoice. Evaluated
// once per PDF at pool-build time.
func IsTripReceipt(filename, text string) bool {
	fn := strings.ToLower(filename)
	keyword := false
	for _, k := range tripKeywords {
		if strings.Contains(fn, k) {
			keyword = true
			break
		}
	}
	if !keyword {
		return false
	}
	if text == "" {
		return true
	}

	clean := cntext.Normalize(text)
	if invoiceNumberRe.MatchString(clean) {
		return false
	}
	if strings.Contains(clean, "价税合计") || strings.Contains(clean, "电子发票") {
		return false
	}
	return true
}
