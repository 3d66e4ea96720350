package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/notify"
	"github.com/jonathan/quote-repost/internal/observability"
	"github.com/jonathan/quote-repost/internal/pipeline"
	"github.com/jonathan/quote-repost/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one invocation through the pipeline",
	Long: `Generates three quote-repost drafts for one source post, corrects and scores them, and
notifies the reviewer with the drafts that pass the threshold.

The invocation is read from --invocation (a JSON file, "-" for stdin) or built from
--post-id, --text and --author. Use --dry-run to print the notification instead of sending it.`,
	RunE: runGenerate,
}

var (
	genFlags          pipelineFlags
	genInvocationPath string
	genPostID         string
	genText           string
	genTextFile       string
	genAuthor         string
	genTheme          string
	genThinking       string
	genVocabulary     string
	genHookStyle      string
	genQuoteAngle     string
	genRevision       string
	genKeywords       string
	genDryRun         bool
	genJSON           bool
)

func init() {
	genFlags.register(generateCmd)

	generateCmd.Flags().StringVarP(&genInvocationPath, "invocation", "i", "", "Path to an invocation JSON file (\"-\" for stdin)")
	generateCmd.Flags().StringVar(&genPostID, "post-id", "", "Source post ID")
	generateCmd.Flags().StringVar(&genText, "text", "", "Source post text")
	generateCmd.Flags().StringVar(&genTextFile, "text-file", "", "File containing the source post text")
	generateCmd.Flags().StringVar(&genAuthor, "author", "", "Account the drafts are written for")
	generateCmd.Flags().StringVar(&genTheme, "theme", "", "Author profile: primary theme")
	generateCmd.Flags().StringVar(&genThinking, "thinking", "", "Author profile: thinking pattern")
	generateCmd.Flags().StringVar(&genVocabulary, "vocabulary", "", "Author profile: vocabulary features")
	generateCmd.Flags().StringVar(&genHookStyle, "hook-style", "", "Author profile: hook style")
	generateCmd.Flags().StringVar(&genQuoteAngle, "quote-angle", "", "Author profile: quote angle")
	generateCmd.Flags().StringVar(&genRevision, "revision", "", "Revision instruction from the reviewer")
	generateCmd.Flags().StringVar(&genKeywords, "keywords", "", "Comma separated trend keywords (used when no database is configured)")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Print the notification instead of sending it")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the invocation record as JSON")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := genFlags.resolve(cmd)
	if err != nil {
		return err
	}

	inv, err := buildInvocation()
	if err != nil {
		return err
	}
	if inv.Mode == "" {
		inv.Mode = cfg.Mode
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newCommandLogger(cfg, "quote-agent")
	opts := stackOptions{keywords: parseKeywords(genKeywords)}
	var recording *notify.Recording
	if genDryRun {
		recording = &notify.Recording{}
		opts.notifier = recording
	}

	s, err := newStack(ctx, cfg, logger, opts)
	defer s.Close()
	if err != nil {
		return err
	}

	outcome, runErr := s.runner.Run(ctx, inv)
	if errors.Is(runErr, pipeline.ErrInvalidInvocation) {
		return runErr
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintDrafts(outcome.Drafts, cfg.GateThreshold())
	}
	if recording != nil {
		for _, n := range recording.Sent() {
			_, _ = fmt.Fprintln(os.Stdout, notify.FormatNotification(n))
		}
	}
	if genJSON {
		if err := writeJSON(os.Stdout, db.RecordFromOutcome(outcome)); err != nil {
			return err
		}
	} else {
		printer.PrintOutcome(outcome)
	}

	return runErr
}

// buildInvocation reads --invocation or assembles one from the individual flags
func buildInvocation() (types.Invocation, error) {
	if genInvocationPath != "" {
		invs, err := readInvocationsFile(genInvocationPath)
		if err != nil {
			return types.Invocation{}, err
		}
		if len(invs) != 1 {
			return types.Invocation{}, fmt.Errorf("expected one invocation in %s, found %d", genInvocationPath, len(invs))
		}
		inv := invs[0]
		if genRevision != "" {
			inv.RevisionInstruction = genRevision
		}
		return inv, nil
	}

	text, err := readText(genText, genTextFile)
	if err != nil {
		return types.Invocation{}, err
	}
	if genPostID == "" || text == "" || genAuthor == "" {
		return types.Invocation{}, fmt.Errorf("either --invocation or all of --post-id, --text (or --text-file) and --author must be provided")
	}
	return types.Invocation{
		SourceID: genPostID,
		Text:     text,
		Author:   genAuthor,
		AuthorProfile: types.AuthorProfile{
			AccountID:          genAuthor,
			PrimaryTheme:       genTheme,
			ThinkingPattern:    genThinking,
			VocabularyFeatures: genVocabulary,
			HookStyle:          genHookStyle,
			QuoteAngle:         genQuoteAngle,
		},
		RevisionInstruction: genRevision,
	}, nil
}
