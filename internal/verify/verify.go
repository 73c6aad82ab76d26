// Package verify builds a lookup index over a finalized result set and
// answers whether an arbitrary source document is already accounted for.
package verify

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fapiaowuyou/fapiao-recon/internal/model"
)

// minNumberLen guards the number index against accidental collisions between
// short, non-unique numbers: only numbers longer than this participate.
const minNumberLen = 6

// truncatedNameLen is the deliberately coarse seller-name key width, chosen
// to tolerate name-extraction noise.
const truncatedNameLen = 4

type attrKey struct {
	amount string // fixed 2-decimal formatting
	date   string
	seller string // first 4 runes
}

// Index is built once from a finalized result set and read-only afterward.
type Index struct {
	byNumber map[string]float64
	byAttr   map[attrKey]struct{}
}

// Candidate is a freshly re-extracted document to test against the index.
type Candidate struct {
	Number string
	Date   string
	Seller string
	Amount float64
}

// CandidateFromRecord adapts an extraction record for an index lookup.
func CandidateFromRecord(rec *model.Record) Candidate {
	return Candidate{
		Number: rec.Number,
		Date:   rec.Date,
		Seller: rec.Seller,
		Amount: rec.Amount,
	}
}

// Build indexes the given result rows. Callers must exclude the synthetic
// summary row before calling.
func Build(rows []model.ResultRow) *Index {
	ix := &Index{
		byNumber: make(map[string]float64),
		byAttr:   make(map[attrKey]struct{}),
	}
	for _, row := range rows {
		num := strings.TrimSpace(row.Number)
		if len(num) > minNumberLen {
			ix.byNumber[num] = row.Amount
		}
		ix.byAttr[newAttrKey(row.Amount, row.Date, row.Seller)] = struct{}{}
	}
	return ix
}

// Check reports whether the candidate is already represented in the result
// set. A number hit is authoritative: it is never overridden by an amount
// mismatch (two invoices sharing a number by clerical error are a product
// question, not ours to decide here). Without a number, the amount/date/name
// tuple decides, relaxing to amount+date when the amount's non-zero cents
// make it a reasonable uniqueness signal on its own.
func (ix *Index) Check(c Candidate) bool {
	num := strings.TrimSpace(c.Number)
	if len(num) > minNumberLen {
		if _, ok := ix.byNumber[num]; ok {
			return true
		}
	}

	if c.Amount > 0 {
		key := newAttrKey(c.Amount, c.Date, c.Seller)
		if _, ok := ix.byAttr[key]; ok {
			return true
		}
		if math.Mod(c.Amount, 1) != 0 {
			for k := range ix.byAttr {
				if k.amount == key.amount && k.date == key.date {
					return true
				}
			}
		}
	}
	return false
}

func newAttrKey(amount float64, date, seller string) attrKey {
	seller = strings.TrimSpace(seller)
	if r := []rune(seller); len(r) > truncatedNameLen {
		seller = string(r[:truncatedNameLen])
	}
	return attrKey{
		amount: decimal.NewFromFloat(amount).StringFixed(2),
		date:   strings.TrimSpace(date),
		seller: seller,
	}
}
