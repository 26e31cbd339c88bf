// Package optimizer improves the ranking instruction document through an
// evaluate → critique → edit loop: metrics and error samples become a
// natural-language gradient, and an editing call applies it as surgical
// changes to the document.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/metrics"
	"github.com/jonathan/lead-ranker/internal/prompts"
	"github.com/jonathan/lead-ranker/internal/types"
)

// Error-sample and document bounds for the gradient prompt. Five examples per
// error class is enough signal without drowning the critique call.
const (
	sampleLimit        = 5
	instructionContext = 6000
)

// Generator produces gradient critiques from evaluation reports.
type Generator struct {
	Client llm.Client
	Model  string
	APIKey string
}

// Gradient asks the model to diagnose why the current instructions produced
// the report's errors. Callers fall back to FallbackGradient on error; a
// failed critique never aborts an optimization run.
func (g *Generator) Gradient(ctx context.Context, instructionText string, report *metrics.Report) (*types.Gradient, error) {
	prompt := prompts.Format(prompts.MustGet("optimizer.json", "gradient"), map[string]string{
		"InstructionText":   truncate(instructionText, instructionContext),
		"Precision":         fmt.Sprintf("%.3f", report.Metrics.Precision),
		"Recall":            fmt.Sprintf("%.3f", report.Metrics.Recall),
		"F1":                fmt.Sprintf("%.3f", report.Metrics.F1),
		"NDCG3":             fmt.Sprintf("%.3f", report.Metrics.NDCG3),
		"FalsePositives":    formatErrorSamples(report.FalsePositives),
		"FalseNegatives":    formatErrorSamples(report.FalseNegatives),
		"RankingMismatches": formatMismatches(report.Mismatches),
	})

	completion, err := g.Client.Complete(ctx, llm.Request{
		Model:    g.Model,
		APIKey:   g.APIKey,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("gradient call failed: %w", err)
	}

	extraction := llm.Extract(completion.Text)
	if err := extraction.Err(); err != nil {
		return nil, fmt.Errorf("gradient response unusable: %w", err)
	}

	var gradient types.Gradient
	if err := json.Unmarshal(extraction.JSON, &gradient); err != nil {
		return nil, fmt.Errorf("failed to decode gradient: %w", err)
	}
	if gradient.Summary == "" {
		return nil, fmt.Errorf("gradient response missing summary")
	}
	switch gradient.Confidence {
	case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
	default:
		gradient.Confidence = types.ConfidenceLow
	}
	return &gradient, nil
}

// FallbackGradient builds a heuristic critique directly from the report when
// the gradient call fails. Low confidence, but it keeps the loop moving.
func FallbackGradient(report *metrics.Report) *types.Gradient {
	gradient := &types.Gradient{
		Summary: fmt.Sprintf(
			"Automated diagnosis unavailable. Evaluation produced %d false positives, %d false negatives and %d ranking mismatches at F1 %.3f.",
			len(report.FalsePositives), len(report.FalseNegatives), len(report.Mismatches), report.Metrics.F1),
		Confidence: types.ConfidenceLow,
	}
	if len(report.FalsePositives) > 0 {
		gradient.FalsePositiveAnalysis = "Irrelevant titles admitted: " + titleList(report.FalsePositives)
		gradient.SuggestedImprovements = append(gradient.SuggestedImprovements,
			"Add explicit exclusions for titles resembling: "+titleList(report.FalsePositives))
	}
	if len(report.FalseNegatives) > 0 {
		gradient.FalseNegativeAnalysis = "Relevant titles rejected: " + titleList(report.FalseNegatives)
		gradient.SuggestedImprovements = append(gradient.SuggestedImprovements,
			"Broaden the persona to include titles resembling: "+titleList(report.FalseNegatives))
	}
	if len(report.Mismatches) > 0 {
		gradient.RankingAnalysis = fmt.Sprintf("%d leads ranked far from their expected position.", len(report.Mismatches))
	}
	return gradient
}

func formatErrorSamples(leads []types.EvalLead) string {
	if len(leads) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, lead := range leads {
		if i == sampleLimit {
			fmt.Fprintf(&b, "... and %d more\n", len(leads)-sampleLimit)
			break
		}
		fmt.Fprintf(&b, "- %s, %q at %s (%s)\n", lead.Name, lead.Title, lead.Company, companyHint(lead))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatMismatches(mismatches []metrics.Mismatch) string {
	if len(mismatches) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, m := range mismatches {
		if i == sampleLimit {
			fmt.Fprintf(&b, "... and %d more\n", len(mismatches)-sampleLimit)
			break
		}
		fmt.Fprintf(&b, "- %s, %q at %s: predicted rank %d, expected %d\n",
			m.Lead.Name, m.Lead.Title, m.Lead.Company, m.PredictedRank, m.ExpectedRank)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func companyHint(lead types.EvalLead) string {
	parts := []string{}
	if lead.EmployeeRange != "" {
		parts = append(parts, lead.EmployeeRange+" employees")
	}
	if lead.Industry != "" {
		parts = append(parts, lead.Industry)
	}
	if len(parts) == 0 {
		return "size unknown"
	}
	return strings.Join(parts, ", ")
}

func titleList(leads []types.EvalLead) string {
	titles := make([]string, 0, sampleLimit)
	for i, lead := range leads {
		if i == sampleLimit {
			break
		}
		titles = append(titles, fmt.Sprintf("%q", lead.Title))
	}
	return strings.Join(titles, ", ")
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "\n[truncated]"
}
