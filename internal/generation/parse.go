package generation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/quote-repost/internal/llm"
	"github.com/jonathan/quote-repost/internal/schemas"
	"github.com/jonathan/quote-repost/internal/types"
)

var validate = validator.New()

// ParseResponse locates the first balanced JSON object in raw model output and
// checks it against the draft contract. Every failure is a *ParseError.
func ParseResponse(raw string) (*types.GenerationResponse, error) {
	object, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return nil, &ParseError{
			Reason:  ReasonMalformedResponse,
			Message: fmt.Sprintf("no JSON object found in response: %q", preview(raw, 200)),
		}
	}

	if err := schemas.ValidateGenerationResponse(object); err != nil {
		return nil, &ParseError{Reason: ReasonMalformedResponse, Message: "response does not match draft schema", Cause: err}
	}

	var resp types.GenerationResponse
	if err := json.Unmarshal([]byte(object), &resp); err != nil {
		return nil, &ParseError{Reason: ReasonMalformedResponse, Message: "failed to decode drafts", Cause: err}
	}

	if err := validate.Struct(&resp); err != nil {
		return nil, &ParseError{Reason: ReasonMalformedResponse, Message: "draft fields invalid", Cause: err}
	}

	if err := checkDrafts(resp.Drafts); err != nil {
		return nil, err
	}

	return &resp, nil
}

// checkDrafts enforces what the schema cannot: distinct variant labels from
// the known construction patterns, and non-blank text.
func checkDrafts(drafts []types.Draft) error {
	seen := make(map[string]bool, len(drafts))
	for i, d := range drafts {
		label := strings.TrimSpace(d.Type)
		if !slices.Contains(types.DraftVariants, label) {
			return &ParseError{Reason: ReasonMalformedResponse, Message: fmt.Sprintf("draft %d has unknown type %q", i, d.Type)}
		}
		if seen[label] {
			return &ParseError{Reason: ReasonMalformedResponse, Message: fmt.Sprintf("duplicate draft type %q", label)}
		}
		seen[label] = true

		if strings.TrimSpace(d.Text) == "" {
			return &ParseError{Reason: ReasonMalformedResponse, Message: fmt.Sprintf("draft %d has blank text", i)}
		}
		for _, dim := range types.ScoreDimensions {
			if _, ok := d.SelfAssessment[dim]; !ok {
				return &ParseError{Reason: ReasonMalformedResponse, Message: fmt.Sprintf("draft %d missing score %q", i, dim)}
			}
		}
	}
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
