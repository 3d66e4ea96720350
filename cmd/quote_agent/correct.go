package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/quote-repost/internal/config"
	"github.com/jonathan/quote-repost/internal/correction"
	"github.com/jonathan/quote-repost/internal/types"
)

var correctCmd = &cobra.Command{
	Use:   "correct",
	Short: "Apply the deterministic style corrections to a text",
	Long: `Runs the corrector on --text (or --file, "-" for stdin) with the style for --author and
prints the corrected text, the issues found and the character count as JSON.`,
	RunE: runCorrect,
}

var (
	correctText      string
	correctFile      string
	correctStyleFile string
	correctAuthor    string
)

func init() {
	correctCmd.Flags().StringVar(&correctText, "text", "", "Text to correct")
	correctCmd.Flags().StringVarP(&correctFile, "file", "f", "", "File containing the text to correct (\"-\" for stdin)")
	correctCmd.Flags().StringVar(&correctStyleFile, "style-file", "", "YAML style set (defaults to STYLE_FILE env var, then the built-in style)")
	correctCmd.Flags().StringVar(&correctAuthor, "author", "", "Author whose style overrides apply")

	rootCmd.AddCommand(correctCmd)
}

func runCorrect(_ *cobra.Command, _ []string) error {
	text, err := readCorrectInput()
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("either --text or --file must be provided")
	}

	style, err := loadStyle(correctStyleFile, correctAuthor)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, correction.Correct(text, style))
}

func readCorrectInput() (string, error) {
	if correctText == "" && correctFile == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return readText(correctText, correctFile)
}

// loadStyle returns the style for author from path, STYLE_FILE or the built-in default
func loadStyle(path, author string) (types.StyleGuidelines, error) {
	if path == "" {
		path = config.GetEnv("STYLE_FILE", "")
	}
	if path == "" {
		return correction.DefaultStyle(), nil
	}
	set, err := correction.LoadStyleFile(path)
	if err != nil {
		return types.StyleGuidelines{}, err
	}
	return set.For(author), nil
}
