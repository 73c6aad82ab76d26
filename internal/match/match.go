// Package match pairs principal invoices with auxiliary trip receipts inside
// a single origin scope, using a prioritized strategy chain.
package match

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
)

// Matching thresholds. Amounts within amountTolerance are considered equal;
// amounts apart by more than discrepancyLimit need manual review even when
// the filenames pair up.
const (
	amountTolerance  = 0.05
	discrepancyLimit = 0.1
	nameSimilarity   = 0.85
)

// Remarks attached to a successful match. Only the amount-equality and
// name-with-agreeing-amount cases count as verified.
const (
	RemarkAmountMatched  = "金额一致"
	RemarkNameMatched    = "文件名匹配-金额一致"
	RemarkNameAmountDiff = "文件名匹配-金额不符需人工复核"
	RemarkNameNoAmount   = "文件名匹配-金额未核验"
	RemarkOnlyCandidate  = "同组唯一行程单-未核验"
)

// Entry is one auxiliary receipt in the pool. Used flips false→true exactly
// once when a strategy selects the entry; each receipt serves at most one
// invoice for the remainder of the run.
type Entry struct {
	Path   string
	Amount float64
	Scope  string
	Used   bool
}

// Result is the outcome of a single matching call. Entry is nil when no
// strategy succeeded.
type Result struct {
	Entry  *Entry
	Remark string
}

// Pool holds the auxiliary receipts collected at classification time.
type Pool struct {
	entries []*Entry
}

// NewPool returns an empty auxiliary pool.
func NewPool() *Pool {
	return &Pool{}
}

// Add appends an auxiliary receipt to the pool.
func (p *Pool) Add(path string, amount float64, scope string) *Entry {
	e := &Entry{Path: path, Amount: amount, Scope: scope}
	p.entries = append(p.entries, e)
	return e
}

// Entries returns all pool entries, used or not, in insertion order.
func (p *Pool) Entries() []*Entry {
	return p.entries
}

// Match pairs a principal document with at most one unused auxiliary receipt
// from the same scope. Strategies run in order, first success wins: amount
// equality, filename similarity, then scope uniqueness. The selected entry is
// marked used immediately.
func (p *Pool) Match(amount float64, filename, scope string) Result {
	candidates := p.unused(scope)
	if len(candidates) == 0 {
		return Result{}
	}

	if amount > 0 {
		for _, c := range candidates {
			if math.Abs(c.Amount-amount) < amountTolerance {
				c.Used = true
				return Result{Entry: c, Remark: RemarkAmountMatched}
			}
		}
	}

	if norm := normalizeName(filename); norm != "" {
		for _, c := range candidates {
			cn := normalizeName(filepath.Base(c.Path))
			if cn == "" || !namesAlike(norm, cn) {
				continue
			}
			c.Used = true
			return Result{Entry: c, Remark: nameRemark(amount, c.Amount)}
		}
	}

	if len(candidates) == 1 {
		candidates[0].Used = true
		return Result{Entry: candidates[0], Remark: RemarkOnlyCandidate}
	}
	return Result{}
}

func (p *Pool) unused(scope string) []*Entry {
	var out []*Entry
	for _, e := range p.entries {
		if e.Scope == scope && !e.Used {
			out = append(out, e)
		}
	}
	return out
}

func nameRemark(principal, auxiliary float64) string {
	if principal <= 0 || auxiliary <= 0 {
		return RemarkNameNoAmount
	}
	if math.Abs(principal-auxiliary) > discrepancyLimit {
		return RemarkNameAmountDiff
	}
	return RemarkNameMatched
}

func namesAlike(a, b string) bool {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return levenshtein.Similarity(a, b, levenshtein.NewParams()) > nameSimilarity
}

// stripWords is the vocabulary of generic invoice/trip/vendor words removed
// before filenames are compared. Longer words come first so 电子发票 is
// stripped whole rather than leaving 电子 behind.
var stripWords = []string{
	"电子发票", "电子", "发票", "行程单", "行程", "报销单", "报销",
	"invoice", "receipt", "trip", "滴滴", "高德",
}

var nonWordRe = regexp.MustCompile(`[^\p{Han}\p{L}0-9]+`)

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, w := range stripWords {
		n = strings.ReplaceAll(n, w, "")
	}
	return nonWordRe.ReplaceAllString(n, "")
}
