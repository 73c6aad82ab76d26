package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantAmount float64
		wantNote   string
	}{
		{
			name:       "upper and lower agree",
			text:       "价税合计(大写)贰佰捌拾叁圆捌角壹分(小写)¥283.81",
			wantAmount: 283.81,
			wantNote:   model.NoteNormal,
		},
		{
			name:       "upper authoritative without lower",
			text:       "价税合计(大写)壹佰贰拾圆整",
			wantAmount: 120,
			wantNote:   model.NoteNoDigitForm,
		},
		{
			name:       "lower only",
			text:       "合计¥1,234.56",
			wantAmount: 1234.56,
			wantNote:   model.NoteDigitOnly,
		},
		{
			name:       "no amount at all",
			text:       "发票号码12345678901234567890",
			wantAmount: 0,
			wantNote:   model.NoteNoAmount,
		},
		{
			name:       "empty text",
			text:       "",
			wantAmount: 0,
			wantNote:   model.NoteBlankContent,
		},
		{
			name:       "lower out of bounds rejected",
			text:       "合计0.00",
			wantAmount: 0,
			wantNote:   model.NoteNoAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, note := Amount(tt.text)
			assert.InDelta(t, tt.wantAmount, amount, 0.001)
			assert.Equal(t, tt.wantNote, note)
		})
	}
}

func TestAmountDiscrepancy(t *testing.T) {
	amount, note := Amount("价税合计(大写)贰佰捌拾叁圆捌角壹分(小写)¥100.00")

	// Upper-case numeral form wins, and the note names both values.
	assert.InDelta(t, 283.81, amount, 0.001)
	assert.Contains(t, note, "283.81")
	assert.Contains(t, note, "100")
	assert.NotEqual(t, model.NoteNormal, note)
}

func TestAmountAgreementWithinTolerance(t *testing.T) {
	amount, note := Amount("价税合计(大写)贰佰捌拾叁圆捌角壹分(小写)¥283.85")

	assert.InDelta(t, 283.81, amount, 0.001)
	assert.Equal(t, model.NoteNormal, note)
}

func TestAmountFullScanFallback(t *testing.T) {
	// No anchor keywords, only loose figures. Tax-rate and unit constants
	// must be skipped, and the result must never look like a normal match.
	amount, note := Amount("单价0.13数量1.00运费520.50另附12.00")

	assert.InDelta(t, 520.50, amount, 0.001)
	assert.Equal(t, model.NoteFullScan, note)
	assert.NotEqual(t, model.NoteNormal, note)
}

func TestAmountShortNoiseUpperDiscarded(t *testing.T) {
	// A bare currency glyph behind the anchor is noise, not a numeral amount.
	amount, note := Amount("金额圆")

	assert.Zero(t, amount)
	assert.Equal(t, model.NoteNoAmount, note)
}
