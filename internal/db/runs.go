package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/lead-ranker/internal/types"
)

// CreateRankingJob opens an umbrella record for a multi-company ranking run
// and returns its ID.
func (db *DB) CreateRankingJob(ctx context.Context, totalCompanies int, model string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO ranking_jobs (total_companies, model, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		totalCompanies, model,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create ranking job: %w", err)
	}
	return id, nil
}

// UpdateJobCounters adds per-company deltas to a job's running totals.
func (db *DB) UpdateJobCounters(ctx context.Context, jobID uuid.UUID, completed, failed, unprocessed int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE ranking_jobs SET
		   completed_companies = completed_companies + $1,
		   failed_companies = failed_companies + $2,
		   unprocessed_leads = unprocessed_leads + $3
		 WHERE id = $4`,
		completed, failed, unprocessed, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job counters: %w", err)
	}
	return nil
}

// FinishRankingJob closes an umbrella job.
func (db *DB) FinishRankingJob(ctx context.Context, jobID uuid.UUID, status types.RunStatus, runErr error) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE ranking_jobs SET status = $1, error_message = NULLIF($2, ''), completed_at = NOW()
		 WHERE id = $3`,
		string(status), TruncateError(runErr), jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish ranking job: %w", err)
	}
	return nil
}

// CreateOptimizationRun opens a record for one optimization loop invocation.
func (db *DB) CreateOptimizationRun(ctx context.Context, evalSetSize int, model string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO optimization_runs (eval_set_size, model, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		evalSetSize, model,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create optimization run: %w", err)
	}
	return id, nil
}

// FinishOptimizationRun closes an optimization run with its outcome and the
// per-iteration history as JSON. The best-version pointer is recorded even on
// failure, because the loop activates the best version seen before surfacing
// its error.
func (db *DB) FinishOptimizationRun(ctx context.Context, runID uuid.UUID, status types.RunStatus, converged bool, bestVersionID *uuid.UUID, history any, runErr error) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal iteration history: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE optimization_runs SET
		   status = $1, converged = $2, best_version_id = $3, history = $4,
		   error_message = NULLIF($5, ''), completed_at = NOW()
		 WHERE id = $6`,
		string(status), converged, bestVersionID, historyJSON, TruncateError(runErr), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish optimization run: %w", err)
	}
	return nil
}
