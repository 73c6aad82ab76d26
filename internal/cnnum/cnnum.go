// Package cnnum converts Chinese upper-case (banker's) numeral strings into
// decimal amounts, e.g. 贰佰捌拾叁圆捌角壹分 → 283.81.
package cnnum

import (
	"math"
	"strings"
	"unicode/utf8"
)

var digits = map[rune]int64{
	'零': 0, '壹': 1, '贰': 2, '叁': 3, '肆': 4,
	'伍': 5, '陆': 6, '柒': 7, '捌': 8, '玖': 9,
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9, '两': 2,
}

// units multiply the pending digit within a four-digit group.
var units = map[rune]int64{
	'拾': 10, '十': 10,
	'佰': 100, '百': 100,
	'仟': 1000, '千': 1000,
}

// scales fold the whole accumulated value.
var scales = map[rune]int64{
	'万': 10_000,
	'亿': 100_000_000,
}

// Parse converts an upper-case numeral string into an amount rounded to two
// decimals. The integer and fractional sections are split at the currency
// glyph (圆/元); 角 contributes tenths and 分 hundredths. 零 is a positional
// placeholder and contributes nothing. Unknown runes (整, 正, ...) are
// skipped. Malformed or empty input yields 0, which callers treat as "no
// numeral amount found", never as an error.
func Parse(s string) float64 {
	if s == "" {
		return 0
	}
	intPart, fracPart := splitAtYuan(s)
	total := float64(parseInteger(intPart)) + parseFraction(fracPart)
	return math.Round(total*100) / 100
}

func splitAtYuan(s string) (intPart, fracPart string) {
	i := strings.IndexAny(s, "圆元")
	if i < 0 {
		return s, ""
	}
	_, w := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+w:]
}

func parseInteger(s string) int64 {
	var total, sub, digit int64
	for _, r := range s {
		switch {
		case scales[r] != 0:
			total = (total + sub + digit) * scales[r]
			sub, digit = 0, 0
		case units[r] != 0:
			sub += digit * units[r]
			digit = 0
		default:
			if d, ok := digits[r]; ok {
				digit = d
			}
		}
	}
	return total + sub + digit
}

func parseFraction(s string) float64 {
	var frac float64
	var digit int64
	for _, r := range s {
		switch r {
		case '角':
			frac += float64(digit) * 0.1
			digit = 0
		case '分':
			frac += float64(digit) * 0.01
			digit = 0
		default:
			if d, ok := digits[r]; ok {
				digit = d
			}
		}
	}
	return frac
}
