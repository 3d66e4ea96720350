package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/correction"
	"github.com/jonathan/quote-repost/internal/gate"
	"github.com/jonathan/quote-repost/internal/generation"
	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/logging"
	"github.com/jonathan/quote-repost/internal/observability"
	"github.com/jonathan/quote-repost/internal/scoring"
	"github.com/jonathan/quote-repost/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Correct, score and gate a saved generation response",
	Long: `Reads a raw generation response (the JSON object with three drafts, "-" for stdin),
corrects and scores each draft and reports which ones pass the threshold.

Without --rubric the drafts' own self-assessment is used and no LLM call is made.`,
	RunE: runScore,
}

var (
	scoreFlags    pipelineFlags
	scoreResponse string
	scoreAuthor   string
	scoreKeywords string
	scoreJSON     bool
)

func init() {
	scoreFlags.register(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreResponse, "response", "r", "", "Generation response file (\"-\" for stdin)")
	scoreCmd.Flags().StringVar(&scoreAuthor, "author", "", "Author whose style overrides apply")
	scoreCmd.Flags().StringVar(&scoreKeywords, "keywords", "", "Comma separated trend keywords to check coverage for")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the validated drafts as JSON")
	_ = scoreCmd.MarkFlagRequired("response")

	rootCmd.AddCommand(scoreCmd)
}

// scoreReport is the JSON output of the score command
type scoreReport struct {
	Threshold float64                `json:"threshold"`
	Drafts    []types.ValidatedDraft `json:"drafts"`
	Accepted  int                    `json:"accepted"`
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, err := scoreFlags.resolve(cmd)
	if err != nil {
		return err
	}

	raw, err := readResponse(scoreResponse)
	if err != nil {
		return err
	}
	resp, err := generation.ParseResponse(raw)
	if err != nil {
		return err
	}

	style, err := loadStyle(cfg.StyleFile, scoreAuthor)
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger := newCommandLogger(cfg, "quote-agent")
	rubric, closeRubric, err := newRubric(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRubric()

	report := scoreDrafts(ctx, resp.Drafts, style, parseKeywords(scoreKeywords), cfg.GateThreshold(), rubric, logger)

	if scoreJSON {
		return writeJSON(os.Stdout, report)
	}
	printer := observability.NewPrinter(os.Stdout)
	printer.PrintDrafts(report.Drafts, report.Threshold)
	if cfg.Verbose {
		for _, d := range report.Drafts {
			printer.PrintScoreBreakdown(d)
		}
	}
	return nil
}

// scoreDrafts runs the corrector, scorer and gate over drafts
func scoreDrafts(ctx context.Context, drafts []types.Draft, style types.StyleGuidelines, keywords []string,
	threshold float64, rubric scoring.RubricEvaluator, logger logging.Logger) scoreReport {
	scorer := scoring.NewScorer(rubric, logger)
	corrector := correction.NewCorrector(style)
	validated := make([]types.ValidatedDraft, 0, len(drafts))
	for _, d := range drafts {
		validated = append(validated, scorer.Score(ctx, d, corrector.Correct(d.Text), keywords))
	}
	decision := gate.Apply(validated, threshold)
	return scoreReport{Threshold: threshold, Drafts: validated, Accepted: len(decision.Accepted)}
}

// newRubric returns the LLM rubric when enabled, and nil for the self-assessment
func newRubric(ctx context.Context, cfg config.Config) (scoring.RubricEvaluator, func(), error) {
	if !cfg.RubricScoring {
		return nil, func() {}, nil
	}
	if err := requireLLMKey(cfg); err != nil {
		return nil, func() {}, err
	}
	client, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.LLMAPIKey())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return &scoring.LLMRubric{Client: client, Tier: llm.TierLite}, func() { _ = client.Close() }, nil
}

func readResponse(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return readText("", path)
}
