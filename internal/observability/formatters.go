// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/lead-ranker/internal/db"
	"github.com/jonathan/lead-ranker/internal/metrics"
	"github.com/jonathan/lead-ranker/internal/optimizer"
	"github.com/jonathan/lead-ranker/internal/ranking"
	"github.com/jonathan/lead-ranker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRankingOutcome outputs a human-readable summary of one company's
// ranking run: counts, then the top relevant leads in rank order.
func (p *Printer) PrintRankingOutcome(company types.Company, outcome *ranking.Outcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:   %s", company.Name))
	if company.SizeBucket != types.BucketUnknown {
		sb.WriteString(fmt.Sprintf(" (%s)", company.SizeBucket))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Leads:     %d ranked, %d excluded by prefilter\n", len(outcome.Results), outcome.Excluded))
	if outcome.Partial {
		sb.WriteString(fmt.Sprintf("Partial:   %d leads unprocessed (provider exhausted)\n", outcome.Unprocessed))
	}

	relevant := 0
	for _, result := range outcome.Results {
		if result.IsRelevant {
			relevant++
		}
	}
	sb.WriteString(fmt.Sprintf("Relevant:  %d\n", relevant))

	shown := 0
	for _, result := range outcome.Results {
		if result.RankWithinCompany == nil {
			continue
		}
		if shown == 0 {
			sb.WriteString("\nTop contacts:\n")
		}
		if shown == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", relevant-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  #%d  %s (%.0f)\n", *result.RankWithinCompany, result.RoleType, result.Score))
		shown++
	}

	p.printBox("RANKING OUTCOME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRankedLeads outputs a company's persisted ranking, names included.
func (p *Printer) PrintRankedLeads(company types.Company, ranked []db.RankedLead) {
	if len(ranked) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range ranked {
		if r.Result.RankWithinCompany != nil {
			sb.WriteString(fmt.Sprintf("#%d  %s — %s\n", *r.Result.RankWithinCompany, r.Lead.FullName, r.Lead.Title))
			sb.WriteString(fmt.Sprintf("    %s, score %.0f\n", r.Result.RoleType, r.Result.Score))
		}
	}
	excluded := 0
	for _, r := range ranked {
		if !r.Result.IsRelevant {
			excluded++
		}
	}
	if excluded > 0 {
		sb.WriteString(fmt.Sprintf("\n%d leads judged irrelevant\n", excluded))
	}

	p.printBox(fmt.Sprintf("RANKED: %s", company.Name), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMetricsReport outputs an evaluation's aggregate quality numbers.
func (p *Printer) PrintMetricsReport(report *metrics.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Precision: %.3f\n", report.Metrics.Precision))
	sb.WriteString(fmt.Sprintf("Recall:    %.3f\n", report.Metrics.Recall))
	sb.WriteString(fmt.Sprintf("F1:        %.3f\n", report.Metrics.F1))
	sb.WriteString(fmt.Sprintf("NDCG@3:    %.3f (%d companies)\n", report.Metrics.NDCG3, report.CompaniesScored))
	sb.WriteString(fmt.Sprintf("Composite: %.3f\n", report.Metrics.Composite))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Errors: %d false positives, %d false negatives, %d rank mismatches",
		len(report.FalsePositives), len(report.FalseNegatives), len(report.Mismatches)))

	p.printBox("EVALUATION", sb.String())
}

// PrintOptimizationResult outputs a run's iteration history and outcome.
func (p *Printer) PrintOptimizationResult(result *optimizer.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder
	for _, iteration := range result.Iterations {
		sb.WriteString(fmt.Sprintf("v%d: F1 %.3f, NDCG@3 %.3f, composite %.3f",
			iteration.Version, iteration.Metrics.F1, iteration.Metrics.NDCG3, iteration.Metrics.Composite))
		if iteration.UsedFallback {
			sb.WriteString(" [heuristic critique]")
		}
		if iteration.EditFailed {
			sb.WriteString(" [edit failed]")
		}
		sb.WriteString("\n")
		if iteration.ChangeSummary != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", iteration.ChangeSummary))
		}
	}

	sb.WriteString("\n")
	if result.Converged {
		sb.WriteString("Converged.\n")
	} else {
		sb.WriteString("Did not converge.\n")
	}
	if result.Best != nil {
		sb.WriteString(fmt.Sprintf("Active version: v%d (composite %.3f)",
			result.Best.Version, bestComposite(result.Best)))
	}

	p.printBox("OPTIMIZATION RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

func bestComposite(v *types.PromptVersion) float64 {
	if v.Metrics == nil {
		return 0
	}
	return v.Metrics.Composite
}

// PrintVersionList outputs the instruction-document version history.
func (p *Printer) PrintVersionList(versions []types.PromptVersion) {
	if len(versions) == 0 {
		return
	}

	var sb strings.Builder
	for _, v := range versions {
		marker := " "
		if v.IsActive {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s v%-3d %s", marker, v.Version, v.CreatedAt.Format("2006-01-02 15:04")))
		if v.Metrics != nil {
			sb.WriteString(fmt.Sprintf("  composite %.3f", v.Metrics.Composite))
		}
		sb.WriteString("\n")
		if v.ChangeSummary != "" {
			sb.WriteString(fmt.Sprintf("       %s\n", v.ChangeSummary))
		}
	}

	p.printBox("PROMPT VERSIONS", strings.TrimSuffix(sb.String(), "\n"))
}
