package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

func buildRows() []model.ResultRow {
	return []model.ResultRow{
		{
			Seq: 1, Number: "24312000000123456789", Date: "2024-03-05",
			Seller: "上海汽车旅行社", Amount: 283.81, Source: model.SourcePDF,
		},
		{
			Seq: 2, Number: "", Date: "2024-03-06",
			Seller: "北京嘀嘀无限科技发展有限公司", Amount: 45.30, Source: model.SourcePDF,
		},
		{
			Seq: 3, Number: "12345", Date: "2024-03-07",
			Seller: "杭州酒店", Amount: 120.00, Source: model.SourceXML,
		},
	}
}

func TestCheckReflexivity(t *testing.T) {
	rows := buildRows()
	ix := Build(rows)

	// Every record present verbatim in the indexed rows must check true.
	for _, row := range rows {
		c := Candidate{Number: row.Number, Date: row.Date, Seller: row.Seller, Amount: row.Amount}
		assert.Truef(t, ix.Check(c), "row %d not found in its own index", row.Seq)
	}
}

func TestCheckNumberIsAuthoritative(t *testing.T) {
	ix := Build(buildRows())

	// Amount disagrees wildly; the number hit still wins.
	c := Candidate{Number: "24312000000123456789", Amount: 9999.99, Date: "2020-01-01"}
	assert.True(t, ix.Check(c))
}

func TestCheckShortNumberNotIndexed(t *testing.T) {
	ix := Build(buildRows())

	// "12345" is below the length threshold: only attributes can match it.
	hit := Candidate{Number: "12345", Amount: 120.00, Date: "2024-03-07", Seller: "杭州酒店"}
	miss := Candidate{Number: "12345", Amount: 7777.00, Date: "2020-01-01", Seller: "别家酒店"}
	assert.True(t, ix.Check(hit))
	assert.False(t, ix.Check(miss))
}

func TestCheckAttributeTuple(t *testing.T) {
	ix := Build(buildRows())

	// No number, but amount+date+truncated name line up.
	c := Candidate{Amount: 45.30, Date: "2024-03-06", Seller: "北京嘀嘀科技"}
	assert.True(t, ix.Check(c), "first four name runes should match")

	c.Seller = "上海别家公司"
	assert.True(t, ix.Check(c), "fractional amount relaxes to amount+date")

	c.Date = "2024-03-09"
	assert.False(t, ix.Check(c))
}

func TestCheckWholeAmountDoesNotRelax(t *testing.T) {
	ix := Build(buildRows())

	// 120.00 has no fractional part, so the name mismatch is fatal.
	c := Candidate{Amount: 120.00, Date: "2024-03-07", Seller: "完全不同的名字"}
	assert.False(t, ix.Check(c))
}

func TestCheckZeroAmount(t *testing.T) {
	ix := Build(buildRows())

	assert.False(t, ix.Check(Candidate{}))
	assert.False(t, ix.Check(Candidate{Number: "999", Amount: 0}))
}
