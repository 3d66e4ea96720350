// Package correction applies deterministic, rule-based fixes and checks to draft text.
package correction

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/jonathan/quote-repost/internal/types"
)

// markdownRule strips one class of markdown syntax
type markdownRule struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order; each class that matches records one issue.
var markdownRules = []markdownRule{
	{name: "bold", pattern: regexp.MustCompile(`\*\*(.+?)\*\*`), replacement: "$1"},
	{name: "heading", pattern: regexp.MustCompile(`(?m)^#+[\s\p{Zs}]`), replacement: ""},
	{name: "list", pattern: regexp.MustCompile(`(?m)^-[\s\p{Zs}]`), replacement: ""},
}

var emojiPattern = regexp.MustCompile(`[` +
	`\x{1F600}-\x{1F64F}` + // emoticons
	`\x{1F300}-\x{1F5FF}` + // symbols and pictographs
	`\x{1F680}-\x{1F6FF}` + // transport and map
	`\x{1F1E0}-\x{1F1FF}` + // flags
	`\x{2702}-\x{27B0}` + // dingbats
	`\x{1F900}-\x{1F9FF}` +
	`\x{1FA00}-\x{1FA6F}` +
	`\x{1FA70}-\x{1FAFF}` +
	`\x{2600}-\x{26FF}` + // misc symbols
	`]+`)

// dialectCheck is one configured dialect pattern and its compiled form
type dialectCheck struct {
	source string
	re     *regexp.Regexp
}

// Corrector holds a style with its dialect patterns compiled, so drafts that
// share a style don't recompile them.
type Corrector struct {
	style    types.StyleGuidelines
	dialects []dialectCheck
}

// NewCorrector compiles the style's dialect patterns.
// A pattern that does not compile is dropped and never matches.
func NewCorrector(style types.StyleGuidelines) *Corrector {
	c := &Corrector{style: style.Clone()}
	for _, pattern := range style.DialectPatterns {
		re, err := compileDialect(pattern)
		if err != nil {
			continue
		}
		c.dialects = append(c.dialects, dialectCheck{source: pattern, re: re})
	}
	return c
}

// Correct runs the fixed correction sequence over text with a one-off Corrector
func Correct(text string, style types.StyleGuidelines) types.CorrectionResult {
	return NewCorrector(style).Correct(text)
}

// Correct runs the fixed correction sequence over text:
// forbidden words, dialect endings, markdown, emoji, then the character count.
// It never fails.
func (c *Corrector) Correct(text string) types.CorrectionResult {
	var issues []types.Issue

	for _, word := range c.style.ForbiddenWords {
		if word != "" && strings.Contains(text, word) {
			issues = append(issues, types.Issue{
				Kind:     types.IssueForbiddenWord,
				Severity: types.SeverityWarning,
				Word:     word,
			})
		}
	}

	for _, d := range c.dialects {
		if d.re.MatchString(text) {
			issues = append(issues, types.Issue{
				Kind:     types.IssueDialectViolation,
				Severity: types.SeverityError,
				Pattern:  d.source,
			})
		}
	}

	corrected, fixes := stripFormatting(text)
	issues = append(issues, fixes...)

	count := CharCount(corrected)
	issues = append(issues, types.Issue{
		Kind:     types.IssueLengthInfo,
		Severity: types.SeverityInfo,
		Count:    &count,
	})

	return types.CorrectionResult{
		Original:         text,
		Corrected:        corrected,
		CharCount:        count,
		Issues:           issues,
		HasBlockingIssue: hasBlocking(issues),
	}
}

// CharCount counts user-perceived characters (grapheme clusters)
func CharCount(text string) int {
	return uniseg.GraphemeClusterCount(text)
}

// stripFormatting removes markdown and emoji until the text is stable, so
// removing one construct can't expose another (e.g. an emoji before "# ").
func stripFormatting(text string) (string, []types.Issue) {
	matched := make(map[string]bool, len(markdownRules))
	emojiRemoved := false

	for {
		before := text
		for _, rule := range markdownRules {
			for rule.pattern.MatchString(text) {
				matched[rule.name] = true
				text = rule.pattern.ReplaceAllString(text, rule.replacement)
			}
		}
		if emojiPattern.MatchString(text) {
			emojiRemoved = true
			text = emojiPattern.ReplaceAllString(text, "")
		}
		if text == before {
			break
		}
	}

	var issues []types.Issue
	for _, rule := range markdownRules {
		if matched[rule.name] {
			issues = append(issues, types.Issue{
				Kind:     types.IssueMarkdownRemoved,
				Severity: types.SeverityAutoFixed,
				Pattern:  rule.name,
			})
		}
	}
	if emojiRemoved {
		issues = append(issues, types.Issue{
			Kind:     types.IssueEmojiRemoved,
			Severity: types.SeverityAutoFixed,
		})
	}
	return text, issues
}

// compileDialect compiles a dialect pattern in multiline mode. RE2's \s is
// ASCII-only, so every \s also admits Unicode spaces such as U+3000.
func compileDialect(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?m)" + widenSpace(pattern))
}

// widenSpace rewrites \s to include \p{Zs}, inside and outside character classes.
func widenSpace(pattern string) string {
	var b strings.Builder
	inClass := false
	classStart := -1
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			next := pattern[i+1]
			i++
			switch {
			case next == 's' && inClass:
				b.WriteString(`\s\p{Zs}`)
			case next == 's':
				b.WriteString(`[\s\p{Zs}]`)
			default:
				b.WriteByte(c)
				b.WriteByte(next)
			}
			continue
		case c == '[' && !inClass:
			inClass = true
			classStart = b.Len() + 1
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				b.WriteString("[^")
				i++
				classStart++
				continue
			}
		case c == ']' && inClass && b.Len() > classStart:
			inClass = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func hasBlocking(issues []types.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == types.SeverityError {
			return true
		}
	}
	return false
}
