// Package schemas provides JSON Schema validation for LLM payloads after
// repair and before mapping, so structural damage surfaces as a classified
// error instead of a zero-valued struct.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed ranking_response.schema.json
var rankingResponseSchema []byte

// FieldError is a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates the schema violations found in one payload.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("ranking payload validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// ValidateRankingResponse checks a repaired ranking payload against the
// response schema. Scores out of range are NOT schema violations; they are
// clamped later by the result mapper.
func ValidateRankingResponse(doc []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(rankingResponseSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation could not run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, desc := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return ve
}
