// Package scoring turns corrected drafts into scored, validated drafts.
package scoring

import "regexp"

// MaxSpecificity caps the deterministic specificity score
const MaxSpecificity = 10

// \p{Nd} so full-width digits (３０万円) count the same as ASCII ones.
// Every pattern needs at least one digit, so digit-free text always scores 0.
var (
	digitPattern    = regexp.MustCompile(`\p{Nd}`)
	monetaryPattern = regexp.MustCompile(`\p{Nd}[\p{Nd},]*(?:万|円|億)|(?:月収|年収|年商)\p{Nd}`)
	quantityPattern = regexp.MustCompile(`\p{Nd}+(?:人|ヶ月|日|年|時間|回|%)`)
)

// Specificity rewards concrete numbers: +3 for any digit, +4 for a money or
// income figure, +3 for a counted quantity. The result is in [0, MaxSpecificity].
func Specificity(text string) int {
	score := 0
	if digitPattern.MatchString(text) {
		score += 3
	}
	if monetaryPattern.MatchString(text) {
		score += 4
	}
	if quantityPattern.MatchString(text) {
		score += 3
	}
	return min(score, MaxSpecificity)
}
