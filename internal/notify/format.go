// Package notify delivers accepted drafts to human reviewers.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/quote-repost/internal/types"
)

// MaxMessageLength is Discord's per-message content limit
const MaxMessageLength = 2000

// sourceExcerptLength is how much of the source post is quoted
const sourceExcerptLength = 300

const divider = "━━━━━━━━━━━━━━━━━━━━━"

// FormatNotification renders the reviewer message: source excerpt, numbered
// drafts with score and matched keywords, and the reply commands.
func FormatNotification(n types.Notification) string {
	lines := []string{
		divider,
		"**新規引用リポスト候補**",
		divider,
		"",
		fmt.Sprintf("**元ポスト** (%s):", n.Author),
		"> " + excerpt(n.OriginalText, sourceExcerptLength),
		"",
		divider,
	}

	for i, d := range n.Drafts {
		kw := ""
		if d.TrendKeywords.HasTrendKeyword {
			kw = " | KW: " + strings.Join(d.TrendKeywords.UsedKeywords, ", ")
		}
		lines = append(lines,
			"",
			fmt.Sprintf("**%d. %s　%s点**%s", i+1, d.Type, FormatScore(d.TotalScore), kw),
			"```",
			d.Text,
			"```",
		)
	}

	choices := make([]string, len(n.Drafts))
	for i := range n.Drafts {
		choices[i] = fmt.Sprintf("`%d`", i+1)
	}
	lines = append(lines,
		"",
		divider,
		"選択: "+strings.Join(choices, " / "),
		"修正: `修正 {修正指示}`",
		"スキップ: `skip`",
		divider,
	)

	return strings.Join(lines, "\n")
}

// FormatScore prints whole scores without a decimal point
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// SplitMessage splits text into chunks of at most maxLen characters, breaking
// on line boundaries. A single line longer than maxLen is cut.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > maxLen {
			flush()
			runes := []rune(line)
			chunks = append(chunks, string(runes[:maxLen]))
			line = string(runes[maxLen:])
		}

		lineLen := utf8.RuneCountInString(line)
		added := lineLen
		if len(current) > 0 {
			added++
		}
		if currentLen+added > maxLen {
			flush()
			added = lineLen
		}
		current = append(current, line)
		currentLen += added
	}
	flush()

	return chunks
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
