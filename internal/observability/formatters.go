// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/types"
)

const (
	// boxWidth is the display width of formatted output boxes, borders included
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most width display columns, marking the cut with "..."
func truncate(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	var sb strings.Builder
	used := 0
	state := -1
	rest := s
	var cluster string
	var w int
	for rest != "" {
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > width-3 {
			break
		}
		sb.WriteString(cluster)
		used += w
	}
	return sb.String() + "..."
}

// pad right-pads s with spaces to width display columns
func pad(s string, width int) string {
	if gap := width - uniseg.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// printBox prints a formatted box with a title and content.
// Wide characters count as two columns so Japanese text lines up.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(title, inner), inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress writes one line per state transition
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	fmt.Fprintf(p.out, "[%s] %-18s %s\n", event.SourceID, event.State, event.Message)
}

// PrintDrafts outputs each scored draft with its score, length and the gate verdict.
func (p *Printer) PrintDrafts(drafts []types.ValidatedDraft, threshold float64) {
	if len(drafts) == 0 {
		return
	}

	var sb strings.Builder
	for i, d := range drafts {
		verdict := "✓ pass"
		switch {
		case d.HasBlockingIssue:
			verdict = "✗ blocked"
		case d.TotalScore < threshold:
			verdict = "✗ below threshold"
		}
		sb.WriteString(fmt.Sprintf("#%d  %s  %.0f点  %d字  %s\n", i+1, d.Type, d.TotalScore, d.CharCount, verdict))
		sb.WriteString(fmt.Sprintf("    %s\n", firstLine(d.Text)))
		if d.TrendKeywords.HasTrendKeyword {
			sb.WriteString(fmt.Sprintf("    KW: %s\n", strings.Join(d.TrendKeywords.UsedKeywords, ", ")))
		}
		if issues := summarizeIssues(d.Issues); issues != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", issues))
		}
		if i < len(drafts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("SCORED DRAFTS (threshold %.0f)", threshold), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScoreBreakdown outputs the per-dimension scores of one draft
func (p *Printer) PrintScoreBreakdown(d types.ValidatedDraft) {
	if len(d.Score) == 0 {
		return
	}

	var sb strings.Builder
	for _, dim := range types.ScoreDimensions {
		v, ok := d.Score[dim]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("%-18s %4.1f %s\n", dim, v, strings.Repeat("■", int(v))))
	}
	sb.WriteString(fmt.Sprintf("%-18s %4.1f", types.ScoreTotalKey, d.TotalScore))

	p.printBox("SCORE: "+d.Type, sb.String())
}

// PrintOutcome outputs where an invocation ended
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintOutcome(out *pipeline.Outcome) {
	if out == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Post:      %s\n", out.Invocation.SourceID))
	sb.WriteString(fmt.Sprintf("Run:       %s\n", out.RunID))
	sb.WriteString(fmt.Sprintf("State:     %s\n", out.State))
	sb.WriteString(fmt.Sprintf("Attempts:  %d\n", out.Attempts))
	sb.WriteString(fmt.Sprintf("Accepted:  %d of %d", len(out.Accepted), len(out.Drafts)))
	if out.Err != nil {
		sb.WriteString(fmt.Sprintf("\nError:     %s", out.Err))
	}

	title := "✅ INVOCATION " + string(out.State)
	if !out.State.Succeeded() {
		title = "❌ INVOCATION " + string(out.State)
	}
	p.printBox(title, sb.String())
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}

// summarizeIssues lists issue kinds other than the informational length note, with counts
func summarizeIssues(issues []types.Issue) string {
	counts := make(map[types.IssueKind]int)
	var order []types.IssueKind
	for _, issue := range issues {
		if issue.Kind == types.IssueLengthInfo {
			continue
		}
		if counts[issue.Kind] == 0 {
			order = append(order, issue.Kind)
		}
		counts[issue.Kind]++
	}

	parts := make([]string, 0, len(order))
	for _, kind := range order[:min(len(order), maxItemsToShow)] {
		parts = append(parts, fmt.Sprintf("⚠ %s×%d", kind, counts[kind]))
	}
	return strings.Join(parts, " ")
}
