// Package cntext canonicalizes raw text pulled out of Chinese tax documents
// before any pattern matching runs against it.
package cntext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// replacer strips layout whitespace and fixes the one homoglyph that keeps
// showing up in extracted invoice numbers (latin O for zero).
var replacer = strings.NewReplacer(
	" ", "",
	"\n", "",
	"\r", "",
	"\t", "",
	"O", "0",
	"o", "0",
)

// Normalize canonicalizes raw extracted text: full-width punctuation is folded
// to half-width (：→:, （→(, ￥→¥), whitespace is stripped entirely, and O/o
// become 0. CJK ideographs pass through unchanged.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return replacer.Replace(width.Narrow.String(s))
}

var dateRe = regexp.MustCompile(`(\d{4})[-年/.](\d{1,2})[-月/.](\d{1,2})`)

// FormatDate extracts the first year-month-day occurrence, tolerating -, /, .
// and CJK unit separators, and returns it zero-padded as YYYY-MM-DD.
// Returns "" when no date is present.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
}
