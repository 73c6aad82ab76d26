package cnnum

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{name: "canonical invoice amount", in: "贰佰捌拾叁圆捌角壹分", want: 283.81},
		{name: "empty string", in: "", want: 0},
		{name: "integer only", in: "壹佰圆整", want: 100},
		{name: "wan scale", in: "伍万圆", want: 50000},
		{name: "wan with remainder", in: "壹万贰仟叁佰肆拾伍圆", want: 12345},
		{name: "yi scale", in: "壹亿圆", want: 100000000},
		{name: "zero placeholder", in: "壹仟零伍圆", want: 1005},
		{name: "fraction only", in: "圆伍分", want: 0.05},
		{name: "jiao only", in: "叁圆伍角", want: 3.5},
		{name: "colloquial digits", in: "两百五十圆", want: 250},
		{name: "yuan variant glyph", in: "拾贰元叁角", want: 12.3},
		{name: "no currency glyph", in: "贰拾叁", want: 23},
		{name: "pure noise", in: "整", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Parse(tt.in), 0.001)
		})
	}
}

// render produces a canonical upper-case numeral string for the round-trip
// property below. It is intentionally minimal: no 零 placeholders, which
// Parse ignores anyway.
func render(x float64) string {
	var b strings.Builder
	n := int64(x)
	cents := int64(math.Round((x - float64(n)) * 100))

	if n >= 10_000 {
		b.WriteString(renderGroup(n / 10_000))
		b.WriteRune('万')
		n %= 10_000
	}
	if n > 0 {
		b.WriteString(renderGroup(n))
	}
	b.WriteRune('圆')
	if jiao := cents / 10; jiao > 0 {
		b.WriteRune(upperDigits[jiao])
		b.WriteRune('角')
	}
	if fen := cents % 10; fen > 0 {
		b.WriteRune(upperDigits[fen])
		b.WriteRune('分')
	}
	return b.String()
}

var upperDigits = []rune("零壹贰叁肆伍陆柒捌玖")

func renderGroup(n int64) string {
	var b strings.Builder
	for _, u := range []struct {
		value int64
		glyph rune
	}{{1000, '仟'}, {100, '佰'}, {10, '拾'}} {
		if d := n / u.value; d > 0 {
			b.WriteRune(upperDigits[d])
			b.WriteRune(u.glyph)
		}
		n %= u.value
	}
	if n > 0 {
		b.WriteRune(upperDigits[n])
	}
	return b.String()
}

func TestParseRoundTrip(t *testing.T) {
	amounts := []float64{
		0, 0.01, 0.1, 0.99, 1, 9.99, 10, 42.5, 100, 283.81,
		999.99, 1005.3, 9999, 10000, 12345.67, 99999.99,
		100000, 654321.08, 9999999.99, 12345678.9,
	}
	for _, x := range amounts {
		got := Parse(render(x))
		assert.InDeltaf(t, x, got, 0.001, "render(%v) = %q", x, render(x))
	}
}
