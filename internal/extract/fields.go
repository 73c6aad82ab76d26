package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Modern unified e-invoice numbers are exactly 20 digits; legacy numbers
	// are 8+ digits behind a 号码/No label.
	number20Re = regexp.MustCompile(`\d{20}`)
	numberedRe = regexp.MustCompile(`(?:号码|No)[:|]?(\d{8,})`)

	sellerRe = regexp.MustCompile(`[\x{4e00}-\x{9fa5}()（）]{2,30}(?:公司|事务所|酒店|旅行社|经营部|服务部|分行|支行|馆|店|处|中心)`)
)

// sellerBlacklist rejects candidates that are labels or counterparties from
// the wrong side of the invoice, not the seller's legal name. Kept as a table
// so it can be tuned and tested apart from the matching logic.
var sellerBlacklist = []string{
	"税务局", "财政部", "购买方", "开户行", "银行", "地址", "电话",
	"统一社会信用", "纳税人", "适用税率", "密码区", "机器编号",
}

// Number extracts the invoice number from normalized text: a contiguous
// 20-digit span wins, otherwise the first 8+-digit span behind a number label.
func Number(text string) string {
	if m := number20Re.FindString(text); m != "" {
		return m
	}
	if m := numberedRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// SellerName extracts the seller's name: all CJK substrings ending in an
// organizational suffix, minus blacklisted labels, longest survivor wins. The
// longest-wins assumption favors the full legal name over truncated fragments.
func SellerName(text string) string {
	seen := make(map[string]struct{})
	var best string
	for _, c := range sellerRe.FindAllString(text, -1) {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if utf8.RuneCountInString(c) < 4 || blacklisted(c) {
			continue
		}
		if utf8.RuneCountInString(c) > utf8.RuneCountInString(best) {
			best = c
		}
	}
	return best
}

func blacklisted(candidate string) bool {
	for _, b := range sellerBlacklist {
		if strings.Contains(candidate, b) {
			return true
		}
	}
	return false
}
