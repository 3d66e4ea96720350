package scoring

import (
	"strings"

	"github.com/jonathan/quote-repost/internal/types"
)

// TrendCoverage reports which keywords appear verbatim in text.
// Matching is case-sensitive substring containment; repeated keywords count once.
func TrendCoverage(text string, keywords []string) types.TrendKeywordCoverage {
	used := []string{}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		if strings.Contains(text, kw) {
			used = append(used, kw)
		}
	}
	return types.TrendKeywordCoverage{
		HasTrendKeyword: len(used) > 0,
		UsedKeywords:    used,
		Count:           len(used),
	}
}
