package optimizer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/lead-ranker/internal/metrics"
	"github.com/jonathan/lead-ranker/internal/ranking"
	"github.com/jonathan/lead-ranker/internal/types"
)

// Convergence thresholds and loop bounds. Convergence requires both
// thresholds at once: a high F1 with scrambled ordering is not a usable
// document, and vice versa.
const (
	DefaultMaxIterations = 5
	ConvergenceF1        = 0.85
	ConvergenceNDCG3     = 0.80
)

// PromptStore is the persistence surface for instruction-document versions.
// ActiveVersion returns (nil, nil) when no version exists yet.
type PromptStore interface {
	ActiveVersion(ctx context.Context) (*types.PromptVersion, error)
	CreateVersion(ctx context.Context, text string, parentID *uuid.UUID, changeSummary string) (*types.PromptVersion, error)
	SaveVersionMetrics(ctx context.Context, id uuid.UUID, m types.Metrics) error
	ActivateVersion(ctx context.Context, id uuid.UUID) error
}

// Loop runs the evaluate → critique → edit cycle until convergence or the
// iteration bound.
type Loop struct {
	Evaluator     *Evaluator
	Gradients     *Generator
	Editor        *Editor
	Store         PromptStore
	MaxIterations int
	Verbose       bool
}

// Iteration is the record of one loop pass, kept for the run report and
// persisted as the run's history.
type Iteration struct {
	Version       int             `json:"version"`
	VersionID     uuid.UUID       `json:"version_id"`
	Metrics       types.Metrics   `json:"metrics"`
	Gradient      *types.Gradient `json:"gradient,omitempty"`
	UsedFallback  bool            `json:"used_fallback,omitempty"`
	EditFailed    bool            `json:"edit_failed,omitempty"`
	ChangeSummary string          `json:"change_summary,omitempty"`
}

// Result is the outcome of a full optimization run.
type Result struct {
	Best       *types.PromptVersion
	Iterations []Iteration
	Converged  bool
}

// Run optimizes the active instruction document against the labeled eval
// set. Whatever happens mid-run, the best version seen (by composite score)
// ends up active.
func (l *Loop) Run(ctx context.Context, labeled []types.EvalLead) (*Result, error) {
	if len(labeled) == 0 {
		return nil, fmt.Errorf("eval set is empty")
	}

	current, err := l.startingVersion(ctx)
	if err != nil {
		return nil, err
	}

	maxIterations := l.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	result := &Result{}
	var best *types.PromptVersion
	var bestComposite float64

	for iteration := 0; iteration < maxIterations; iteration++ {
		predictions, err := l.Evaluator.Predict(ctx, labeled, current.Text)
		if err != nil {
			return nil, l.finish(ctx, result, best, fmt.Errorf("iteration %d evaluation failed: %w", iteration+1, err))
		}
		report := metrics.Evaluate(labeled, predictions)

		if err := l.Store.SaveVersionMetrics(ctx, current.ID, report.Metrics); err != nil {
			return nil, l.finish(ctx, result, best, fmt.Errorf("failed to save metrics: %w", err))
		}
		current.Metrics = &report.Metrics

		record := Iteration{
			Version:   current.Version,
			VersionID: current.ID,
			Metrics:   report.Metrics,
		}

		if best == nil || report.Metrics.Composite > bestComposite {
			best = current
			bestComposite = report.Metrics.Composite
		}

		if l.Verbose {
			fmt.Printf("iteration %d: version %d scored P=%.3f R=%.3f F1=%.3f NDCG@3=%.3f composite=%.3f\n",
				iteration+1, current.Version, report.Metrics.Precision, report.Metrics.Recall,
				report.Metrics.F1, report.Metrics.NDCG3, report.Metrics.Composite)
		}

		if report.Metrics.F1 > ConvergenceF1 && report.Metrics.NDCG3 > ConvergenceNDCG3 {
			result.Iterations = append(result.Iterations, record)
			result.Converged = true
			break
		}
		if iteration == maxIterations-1 {
			result.Iterations = append(result.Iterations, record)
			break
		}

		gradient, err := l.Gradients.Gradient(ctx, current.Text, report)
		if err != nil {
			if l.Verbose {
				fmt.Printf("iteration %d: gradient fell back to heuristic critique: %v\n", iteration+1, err)
			}
			gradient = FallbackGradient(report)
			record.UsedFallback = true
		}
		record.Gradient = gradient

		edit, err := l.Editor.Edit(ctx, current.Text, gradient)
		if err != nil {
			// Edit failure is a no-op iteration that still spends one pass
			// of the budget. The gradient is regenerated next time around,
			// so a later edit can still land.
			if l.Verbose {
				fmt.Printf("iteration %d: edit failed, keeping current document: %v\n", iteration+1, err)
			}
			record.EditFailed = true
			result.Iterations = append(result.Iterations, record)
			continue
		}
		record.ChangeSummary = edit.ChangeSummary

		// An edit that returns the document unchanged (or no edits at all)
		// records the iteration without minting a duplicate version.
		if edit.Text == current.Text || len(edit.Edits) == 0 {
			if l.Verbose {
				fmt.Printf("iteration %d: edit was a no-op, keeping version %d\n", iteration+1, current.Version)
			}
			result.Iterations = append(result.Iterations, record)
			continue
		}
		result.Iterations = append(result.Iterations, record)

		next, err := l.Store.CreateVersion(ctx, edit.Text, &current.ID, edit.ChangeSummary)
		if err != nil {
			return nil, l.finish(ctx, result, best, fmt.Errorf("failed to create version: %w", err))
		}
		current = next
	}

	if err := l.finish(ctx, result, best, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// startingVersion loads the active document or seeds version 1 from the
// built-in default when the store is empty.
func (l *Loop) startingVersion(ctx context.Context) (*types.PromptVersion, error) {
	active, err := l.Store.ActiveVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active version: %w", err)
	}
	if active != nil {
		return active, nil
	}
	seeded, err := l.Store.CreateVersion(ctx, ranking.DefaultInstructionDocument(), nil, "initial document")
	if err != nil {
		return nil, fmt.Errorf("failed to seed initial version: %w", err)
	}
	if err := l.Store.ActivateVersion(ctx, seeded.ID); err != nil {
		return nil, fmt.Errorf("failed to activate initial version: %w", err)
	}
	return seeded, nil
}

// finish activates the best version seen, then returns runErr (or the
// activation failure if activating is what broke).
func (l *Loop) finish(ctx context.Context, result *Result, best *types.PromptVersion, runErr error) error {
	if best != nil {
		if err := l.Store.ActivateVersion(ctx, best.ID); err != nil {
			if runErr != nil {
				return fmt.Errorf("%w (additionally failed to activate best version: %v)", runErr, err)
			}
			return fmt.Errorf("failed to activate best version: %w", err)
		}
		result.Best = best
	}
	return runErr
}
