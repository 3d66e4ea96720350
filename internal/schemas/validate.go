// Package schemas provides JSON Schema validation for structured model output.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed generation_response.schema.json
var generationResponseSchema string

//go:embed rubric_scores.schema.json
var rubricScoresSchema string

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %d. %s: %s;", i+1, err.Field, err.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// ValidateGenerationResponse checks a drafting response against the embedded schema:
// exactly three drafts, each with a known variant label, text, the three
// construction labels and a complete self-assessment map.
func ValidateGenerationResponse(jsonContent string) error {
	return validate("generation_response.schema.json", gojsonschema.NewStringLoader(generationResponseSchema), jsonContent)
}

// ValidateRubricScores checks a rubric reply: a flat object with every scoring dimension
func ValidateRubricScores(jsonContent string) error {
	return validate("rubric_scores.schema.json", gojsonschema.NewStringLoader(rubricScoresSchema), jsonContent)
}

func validate(schemaName string, schemaLoader gojsonschema.JSONLoader, jsonContent string) error {
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaName,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
