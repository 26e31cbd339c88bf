package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/lead-ranker/internal/types"
)

// ActiveVersion retrieves the single active instruction-document version, or
// (nil, nil) when none has been created yet.
func (db *DB) ActiveVersion(ctx context.Context) (*types.PromptVersion, error) {
	v, err := db.scanVersion(db.pool.QueryRow(ctx,
		versionSelect+` WHERE is_active = TRUE`))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active version: %w", err)
	}
	return v, nil
}

// GetVersion retrieves one version by its sequential number. Returns
// (nil, nil) when absent.
func (db *DB) GetVersion(ctx context.Context, version int) (*types.PromptVersion, error) {
	v, err := db.scanVersion(db.pool.QueryRow(ctx,
		versionSelect+` WHERE version = $1`, version))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get version %d: %w", version, err)
	}
	return v, nil
}

// CreateVersion appends a new immutable version with the next sequential
// number. Versions are never updated in place except for their metrics and
// active flag.
func (db *DB) CreateVersion(ctx context.Context, text string, parentID *uuid.UUID, changeSummary string) (*types.PromptVersion, error) {
	if text == "" {
		return nil, fmt.Errorf("version text cannot be empty")
	}
	v, err := db.scanVersion(db.pool.QueryRow(ctx,
		`INSERT INTO prompt_versions (version, text, parent_id, change_summary)
		 VALUES ((SELECT COALESCE(MAX(version), 0) + 1 FROM prompt_versions), $1, $2, $3)
		 RETURNING id, version, text, parent_id, COALESCE(change_summary, ''), metrics, is_active, created_at`,
		text, parentID, changeSummary))
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}
	return v, nil
}

// SaveVersionMetrics records an evaluation's metrics on a version.
func (db *DB) SaveVersionMetrics(ctx context.Context, id uuid.UUID, m types.Metrics) error {
	metricsJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	result, err := db.pool.Exec(ctx,
		`UPDATE prompt_versions SET metrics = $1 WHERE id = $2`,
		metricsJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save version metrics: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("version not found: %s", id)
	}
	return nil
}

// ActivateVersion makes one version active and deactivates every other, in a
// single transaction so the single-active invariant holds under concurrency.
func (db *DB) ActivateVersion(ctx context.Context, id uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin activation: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE prompt_versions SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
		return fmt.Errorf("failed to deactivate versions: %w", err)
	}
	result, err := tx.Exec(ctx, `UPDATE prompt_versions SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to activate version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("version not found: %s", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

// ListVersions retrieves all versions, newest first.
func (db *DB) ListVersions(ctx context.Context) ([]types.PromptVersion, error) {
	rows, err := db.pool.Query(ctx, versionSelect+` ORDER BY version DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []types.PromptVersion
	for rows.Next() {
		v, err := db.scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, nil
}

const versionSelect = `SELECT id, version, text, parent_id, COALESCE(change_summary, ''), metrics, is_active, created_at
 FROM prompt_versions`

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanVersion(row rowScanner) (*types.PromptVersion, error) {
	var v types.PromptVersion
	var metricsJSON []byte
	if err := row.Scan(&v.ID, &v.Version, &v.Text, &v.ParentID, &v.ChangeSummary,
		&metricsJSON, &v.IsActive, &v.CreatedAt); err != nil {
		return nil, err
	}
	if len(metricsJSON) > 0 {
		var m types.Metrics
		if err := json.Unmarshal(metricsJSON, &m); err != nil {
			return nil, fmt.Errorf("failed to decode version metrics: %w", err)
		}
		v.Metrics = &m
	}
	return &v, nil
}
