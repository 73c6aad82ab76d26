// Package extract recovers amount, invoice number, issue date and seller name
// from normalized invoice text using layered pattern rules.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fapiaowuyou/fapiao-recon/internal/cnnum"
	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// Anchored patterns, in priority order. The upper-case (banker's numeral) form
// is authoritative; the digit form only verifies it.
var (
	upperRe = regexp.MustCompile(`(?:价税合计|大写|金额).*?([零壹贰叁肆伍陆柒捌玖拾佰仟万亿圆角分整]+)`)
	lowerRe = regexp.MustCompile(`(?:小写|¥|￥|合计)[^0-9.]*([0-9]{1,3}(?:,[0-9]{3})*\.[0-9]{2})`)
	scanRe  = regexp.MustCompile(`[0-9]{1,3}(?:,[0-9]{3})*\.[0-9]{2}|[0-9]+\.[0-9]{2}`)
)

// Digit amounts outside these bounds are unit prices, quantities or OCR noise.
const (
	minPlausible = 0.01
	maxPlausible = 5_000_000
)

// fallbackExclusions are figures the last-resort scan must never pick up:
// tax rates and unit quantities formatted like amounts.
var fallbackExclusions = map[string]struct{}{
	"0.01": {}, "0.03": {}, "0.06": {}, "0.13": {}, "1.00": {},
}

// Amount extracts a single monetary amount from normalized text together with
// a status note describing how trustworthy it is. The strategy is tiered:
// authoritative numeral form, secondary digit form, then a last-resort full
// scan. A zero amount always comes with a warning note.
func Amount(text string) (float64, string) {
	if text == "" {
		return 0, model.NoteBlankContent
	}

	upper, hasUpper := findUpper(text)
	lower, hasLower := findLower(text)

	switch {
	case hasUpper && hasLower:
		if math.Abs(upper-lower) > 0.1 {
			return upper, fmt.Sprintf("⚠️ 大小写不符 (大写:%s 小写:%s)", trimFloat(upper), trimFloat(lower))
		}
		return upper, model.NoteNormal
	case hasUpper:
		return upper, model.NoteNoDigitForm
	case hasLower:
		return lower, model.NoteDigitOnly
	}

	if v, ok := scanAll(text); ok {
		return v, model.NoteFullScan
	}
	return 0, model.NoteNoAmount
}

// findUpper locates the anchored banker's-numeral span and converts it.
// Single-character matches are discarded as noise (usually a bare 圆).
func findUpper(text string) (float64, bool) {
	m := upperRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	span := m[1]
	if len([]rune(span)) <= 1 {
		return 0, false
	}
	v := cnnum.Parse(span)
	return v, v > 0
}

// findLower takes the first anchored digit amount within plausible bounds.
// The digit form usually sits right after the numeral form, so first wins.
func findLower(text string) (float64, bool) {
	for _, m := range lowerRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if v >= minPlausible && v <= maxPlausible {
			return v, true
		}
	}
	return 0, false
}

// scanAll is the last-resort strategy: every currency-shaped figure in the
// text, minus known tax-rate and unit constants, maximum of what remains.
func scanAll(text string) (float64, bool) {
	best, found := 0.0, false
	for _, m := range scanRe.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		if _, excluded := fallbackExclusions[strconv.FormatFloat(v, 'f', 2, 64)]; excluded {
			continue
		}
		if v < minPlausible || v > maxPlausible {
			continue
		}
		if v > best {
			best, found = v, true
		}
	}
	return best, found
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
