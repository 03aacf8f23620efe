package order

import (
	"regexp"
	"strings"
)

var (
	skuSuffixPattern = regexp.MustCompile(`[（(][^）)]*[）)]`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// NormalizeSkuCode turns a merchant code as exported by the platform into the
// code used for statistics. Parenthesised remarks (ASCII or full-width) are
// removed and whitespace is collapsed.
func NormalizeSkuCode(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	s = skuSuffixPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\t", "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
