package generation

import (
	"fmt"
	"strings"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/prompts"
	"github.com/jonathan/quote-repost/internal/types"
)

// DefaultKeywordLimit caps how many trend keywords are embedded in a prompt
const DefaultKeywordLimit = 20

const unknownDescriptor = "不明"

// BuildPrompt renders the system instructions and user content for one request.
// At most keywordLimit trend keywords are included; a limit <= 0 uses DefaultKeywordLimit.
func BuildPrompt(req types.GenerationRequest, keywordLimit int) (llm.Prompt, error) {
	if keywordLimit <= 0 {
		keywordLimit = DefaultKeywordLimit
	}

	system, err := prompts.Render(prompts.DraftingFile, prompts.KeySystem, map[string]string{
		"ForbiddenWords":  joinOr(req.Style.ForbiddenWords, "、", "なし"),
		"DialectPatterns": joinOr(req.Style.DialectPatterns, " / ", "なし"),
	})
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to render system prompt: %w", err)
	}

	modeKey := prompts.KeyModeNormal
	mode := req.Mode.OrDefault()
	if mode == types.ModeLong {
		modeKey = prompts.KeyModeLong
	}
	modeAddition, err := prompts.Get(prompts.DraftingFile, modeKey)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to load mode prompt: %w", err)
	}

	keywords := req.TrendKeywords
	if len(keywords) > keywordLimit {
		keywords = keywords[:keywordLimit]
	}

	user, err := prompts.Render(prompts.DraftingFile, prompts.KeyUser, map[string]string{
		"SourceText":         req.SourceText,
		"PrimaryTheme":       orUnknown(req.Profile.PrimaryTheme),
		"ThinkingPattern":    orUnknown(req.Profile.ThinkingPattern),
		"VocabularyFeatures": orUnknown(req.Profile.VocabularyFeatures),
		"HookStyle":          orUnknown(req.Profile.HookStyle),
		"QuoteAngle":         orUnknown(req.Profile.QuoteAngle),
		"FirstPerson":        joinOr(req.Style.FirstPerson, ", ", unknownDescriptor),
		"SecondPerson":       joinOr(req.Style.SecondPerson, ", ", unknownDescriptor),
		"TrendKeywords":      joinOr(keywords, ", ", "なし"),
		"Mode":               string(mode),
	})
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to render user prompt: %w", err)
	}

	// The revision instruction comes last so it overrides earlier guidance
	if instruction := strings.TrimSpace(req.RevisionInstruction); instruction != "" {
		revision, err := prompts.Render(prompts.DraftingFile, prompts.KeyRevision, map[string]string{
			"RevisionInstruction": instruction,
		})
		if err != nil {
			return llm.Prompt{}, fmt.Errorf("failed to render revision prompt: %w", err)
		}
		user += revision
	}

	return llm.Prompt{System: system + modeAddition, User: user}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownDescriptor
	}
	return s
}

func joinOr(items []string, sep, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, sep)
}
