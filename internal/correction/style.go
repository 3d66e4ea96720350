package correction

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/quote-repost/internal/types"
)

// DefaultStyle returns the house style used when no per-author style is configured
func DefaultStyle() types.StyleGuidelines {
	return types.StyleGuidelines{
		FirstPerson:  []string{"俺", "自分"},
		SecondPerson: []string{"お前", "お前さん", "あなた", "君"},
		ForbiddenWords: []string{
			"無理", "諦める", "できない", "設計", "頑張れ", "教えてくれ", "静かなる",
			"会社員やってる奴、大体ない", "これ、マジで本質や", "市場と対話して", "コレ、",
		},
		DialectPatterns: []string{
			`やん[。！？\s]*$`,
			`なる[。！？\s]*$`,
			`[^し]や[。！？\s]*$`,
			`もうた[。！？\s]*$`,
		},
	}
}

// ValidateStyle reports every dialect pattern that does not compile
func ValidateStyle(style types.StyleGuidelines) error {
	var bad []string
	for _, pattern := range style.DialectPatterns {
		if _, err := compileDialect(pattern); err != nil {
			bad = append(bad, fmt.Sprintf("%q: %v", pattern, err))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid dialect patterns: %s", strings.Join(bad, "; "))
	}
	return nil
}

// StyleSet is a default style plus per-author overrides, loaded from YAML:
//
//	default:
//	  first_person: [俺]
//	  forbidden_words: [無理]
//	authors:
//	  some_account:
//	    forbidden_words: [設計]
//
// An author entry replaces only the lists it sets.
type StyleSet struct {
	Default types.StyleGuidelines            `yaml:"default"`
	Authors map[string]types.StyleGuidelines `yaml:"authors"`
}

// LoadStyleFile reads a StyleSet from a YAML file. Empty default lists fall back to DefaultStyle.
func LoadStyleFile(path string) (*StyleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}
	return ParseStyleSet(data)
}

// ParseStyleSet decodes and validates a YAML StyleSet
func ParseStyleSet(data []byte) (*StyleSet, error) {
	var set StyleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse style file: %w", err)
	}

	set.Default = Overlay(DefaultStyle(), set.Default)
	if err := ValidateStyle(set.Default); err != nil {
		return nil, fmt.Errorf("default style: %w", err)
	}
	for author, style := range set.Authors {
		if err := ValidateStyle(style); err != nil {
			return nil, fmt.Errorf("style for %s: %w", author, err)
		}
	}
	return &set, nil
}

// For returns the style for an author, falling back to the default
func (s *StyleSet) For(author string) types.StyleGuidelines {
	if s == nil {
		return DefaultStyle()
	}
	if override, ok := s.Authors[author]; ok {
		return Overlay(s.Default, override)
	}
	return s.Default.Clone()
}

// Style implements the pipeline's style source so a file can stand in for the database
func (s *StyleSet) Style(_ context.Context, author string) (types.StyleGuidelines, error) {
	return s.For(author), nil
}

// Overlay returns base with every non-empty list in override replacing its counterpart
func Overlay(base, override types.StyleGuidelines) types.StyleGuidelines {
	out := base.Clone()
	if len(override.FirstPerson) > 0 {
		out.FirstPerson = append([]string(nil), override.FirstPerson...)
	}
	if len(override.SecondPerson) > 0 {
		out.SecondPerson = append([]string(nil), override.SecondPerson...)
	}
	if len(override.ForbiddenWords) > 0 {
		out.ForbiddenWords = append([]string(nil), override.ForbiddenWords...)
	}
	if len(override.DialectPatterns) > 0 {
		out.DialectPatterns = append([]string(nil), override.DialectPatterns...)
	}
	return out
}
