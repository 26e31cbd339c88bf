package ranking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/lead-ranker/internal/types"
)

// Store is the persistence surface a DB-backed ranking run needs. All writes
// are upserts keyed by stable identity; the engine never assumes exclusive
// access to the record store.
type Store interface {
	ResultSink
	SetCompanyStatus(ctx context.Context, companyID uuid.UUID, status types.RunStatus) error
	UpdateJobCounters(ctx context.Context, jobID uuid.UUID, completed, failed, unprocessed int) error
}

// RunCompany executes one company's ranking with status transitions
// (pending → running → completed/partially_completed/failed) and umbrella-job
// counter updates. jobID may be uuid.Nil for standalone runs.
func RunCompany(ctx context.Context, store Store, o *Orchestrator, jobID uuid.UUID, company types.Company, leads []types.Lead, instructionDoc string) (*Outcome, error) {
	if err := store.SetCompanyStatus(ctx, company.ID, types.StatusRunning); err != nil {
		return nil, fmt.Errorf("failed to mark company running: %w", err)
	}

	outcome, err := o.Rank(ctx, company, leads, instructionDoc)
	if err != nil {
		// Status writes on the failure path are best-effort; the ranking
		// error is the one the caller needs.
		_ = store.SetCompanyStatus(ctx, company.ID, types.StatusFailed)
		if jobID != uuid.Nil {
			_ = store.UpdateJobCounters(ctx, jobID, 0, 1, 0)
		}
		return nil, err
	}

	status := types.StatusCompleted
	if outcome.Partial {
		status = types.StatusPartiallyCompleted
	}
	if err := store.SetCompanyStatus(ctx, company.ID, status); err != nil {
		return nil, fmt.Errorf("failed to mark company %s: %w", status, err)
	}
	if jobID != uuid.Nil {
		if err := store.UpdateJobCounters(ctx, jobID, 1, 0, outcome.Unprocessed); err != nil {
			return nil, fmt.Errorf("failed to update job counters: %w", err)
		}
	}
	return outcome, nil
}
