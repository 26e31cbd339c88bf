package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/prompts"
	"github.com/jonathan/lead-ranker/internal/types"
)

// Editor applies a gradient critique to the instruction document.
type Editor struct {
	Client llm.Client
	Model  string
	APIKey string
}

// EditResult is one editing call's output: the full replacement document plus
// the discrete edits behind it.
type EditResult struct {
	Text          string
	Edits         []types.PromptEdit
	ChangeSummary string
}

// rawEdit mirrors the editor response schema.
type rawEdit struct {
	NewInstructionText string             `json:"new_instruction_text"`
	Edits              []types.PromptEdit `json:"edits"`
	ChangeSummary      string             `json:"change_summary"`
}

// Edit asks the model to apply the critique. A failed edit returns an error
// and the caller treats the iteration as a no-op; the current document is
// never replaced with a degraded one.
func (e *Editor) Edit(ctx context.Context, instructionText string, gradient *types.Gradient) (*EditResult, error) {
	prompt := prompts.Format(prompts.MustGet("optimizer.json", "editor"), map[string]string{
		"InstructionText": instructionText,
		"Critique":        formatCritique(gradient),
	})

	completion, err := e.Client.Complete(ctx, llm.Request{
		Model:    e.Model,
		APIKey:   e.APIKey,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("editor call failed: %w", err)
	}

	extraction := llm.Extract(completion.Text)
	if err := extraction.Err(); err != nil {
		return nil, fmt.Errorf("editor response unusable: %w", err)
	}

	var raw rawEdit
	if err := json.Unmarshal(extraction.JSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode edit: %w", err)
	}
	if strings.TrimSpace(raw.NewInstructionText) == "" {
		return nil, fmt.Errorf("editor returned an empty document")
	}
	if err := validateEdited(raw.NewInstructionText); err != nil {
		return nil, err
	}

	return &EditResult{
		Text:          raw.NewInstructionText,
		Edits:         raw.Edits,
		ChangeSummary: raw.ChangeSummary,
	}, nil
}

// requiredSections are the structural anchors an edited document must keep:
// the splice markers the prompt builder depends on and the output contract.
var requiredSections = []string{
	"## COMPANY CONTEXT",
	"## CANDIDATES",
	"## OUTPUT FORMAT",
}

func validateEdited(text string) error {
	for _, section := range requiredSections {
		if !strings.Contains(text, section) {
			return fmt.Errorf("edited document dropped required section %q", section)
		}
	}
	return nil
}

func formatCritique(gradient *types.Gradient) string {
	var b strings.Builder
	b.WriteString(gradient.Summary)
	if gradient.FalsePositiveAnalysis != "" {
		b.WriteString("\n\nFalse positives: " + gradient.FalsePositiveAnalysis)
	}
	if gradient.FalseNegativeAnalysis != "" {
		b.WriteString("\n\nFalse negatives: " + gradient.FalseNegativeAnalysis)
	}
	if gradient.RankingAnalysis != "" {
		b.WriteString("\n\nRanking: " + gradient.RankingAnalysis)
	}
	if len(gradient.SuggestedImprovements) > 0 {
		b.WriteString("\n\nSuggested changes:")
		for _, suggestion := range gradient.SuggestedImprovements {
			b.WriteString("\n- " + suggestion)
		}
	}
	b.WriteString(fmt.Sprintf("\n\n(critique confidence: %s)", gradient.Confidence))
	return b.String()
}
