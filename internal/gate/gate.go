// Package gate decides which scored drafts are good enough to show a reviewer.
package gate

import "github.com/jonathan/quote-repost/internal/types"

// DefaultThreshold is the minimum total score a draft needs to be surfaced
const DefaultThreshold = 60

// Decision is the gate's verdict for one invocation
type Decision struct {
	Accepted    []types.ValidatedDraft
	Rejected    []types.ValidatedDraft
	AllRejected bool
}

// Apply keeps every draft whose total is at least threshold, in input order
func Apply(drafts []types.ValidatedDraft, threshold float64) Decision {
	var d Decision
	for _, draft := range drafts {
		if draft.TotalScore >= threshold {
			d.Accepted = append(d.Accepted, draft)
		} else {
			d.Rejected = append(d.Rejected, draft)
		}
	}
	d.AllRejected = len(d.Accepted) == 0
	return d
}

// Notification builds the payload handed to the notifier for accepted drafts.
// At most keywordLimit trend keywords are included.
func Notification(inv types.Invocation, accepted []types.ValidatedDraft, trendKeywords []string, keywordLimit int) types.Notification {
	if keywordLimit >= 0 && len(trendKeywords) > keywordLimit {
		trendKeywords = trendKeywords[:keywordLimit]
	}
	return types.Notification{
		SourceID:               inv.SourceID,
		OriginalText:           inv.Text,
		Author:                 inv.Author,
		Drafts:                 accepted,
		TrendKeywordsAvailable: append([]string{}, trendKeywords...),
	}
}
