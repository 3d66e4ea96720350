package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a file of invocations concurrently",
	Long: `Runs every invocation in --input (a JSON array or newline-delimited JSON, "-" for stdin)
with at most --concurrency running at once. One invocation failing does not stop the others.`,
	RunE: runBatch,
}

var (
	batchFlags       pipelineFlags
	batchInput       string
	batchOutput      string
	batchConcurrency int
	batchKeywords    string
)

func init() {
	batchFlags.register(batchCmd)

	batchCmd.Flags().StringVar(&batchInput, "input", "", "Invocations file (JSON array or JSONL, \"-\" for stdin)")
	batchCmd.Flags().StringVarP(&batchOutput, "out", "o", "", "Write invocation records as JSON to this file")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Invocations running at once (default from config)")
	batchCmd.Flags().StringVar(&batchKeywords, "keywords", "", "Comma separated trend keywords (used when no database is configured)")
	_ = batchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(batchCmd)
}

// batchRecord is one line of the batch report
type batchRecord struct {
	*db.InvocationRecord
	Error string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := batchFlags.resolve(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = batchConcurrency
	}

	invs, err := readInvocationsFile(batchInput)
	if err != nil {
		return err
	}
	for i := range invs {
		if invs[i].Mode == "" {
			invs[i].Mode = cfg.Mode
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newCommandLogger(cfg, "quote-agent")
	s, err := newStack(ctx, cfg, logger, stackOptions{keywords: parseKeywords(batchKeywords)})
	defer s.Close()
	if err != nil {
		return err
	}

	results := s.runner.RunBatch(ctx, invs, cfg.Concurrency)
	printBatchSummary(os.Stdout, results)

	if batchOutput != "" {
		if err := writeBatchReport(batchOutput, results); err != nil {
			return err
		}
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d invocations failed", failed, len(results))
	}
	return nil
}

// printBatchSummary prints one line per invocation followed by the counts per state
func printBatchSummary(w io.Writer, results []pipeline.BatchResult) {
	for i, res := range results {
		switch {
		case res.Outcome == nil:
			_, _ = fmt.Fprintf(w, "%3d  %-14s %v\n", i+1, "INVALID", res.Err)
		case res.Err != nil:
			_, _ = fmt.Fprintf(w, "%3d  %-14s %s  %v\n", i+1, res.Outcome.State, res.Outcome.Invocation.SourceID, res.Err)
		default:
			_, _ = fmt.Fprintf(w, "%3d  %-14s %s  accepted %d/%d\n", i+1, res.Outcome.State,
				res.Outcome.Invocation.SourceID, len(res.Outcome.Accepted), len(res.Outcome.Drafts))
		}
	}

	summary := pipeline.Summary(results)
	states := make([]string, 0, len(summary))
	for state := range summary {
		states = append(states, state)
	}
	sort.Strings(states)
	_, _ = fmt.Fprintln(w)
	for _, state := range states {
		_, _ = fmt.Fprintf(w, "%-14s %d\n", state, summary[state])
	}
}

func writeBatchReport(path string, results []pipeline.BatchResult) error {
	records := make([]batchRecord, 0, len(results))
	for _, res := range results {
		var rec batchRecord
		if res.Outcome != nil {
			r := db.RecordFromOutcome(res.Outcome)
			rec.InvocationRecord = &r
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		records = append(records, rec)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return writeJSON(f, records)
}
