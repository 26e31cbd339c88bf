package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/lead-ranker/internal/normalize"
	"github.com/jonathan/lead-ranker/internal/types"
)

// UpsertLead creates or refreshes a lead keyed by (company, name, title) and
// returns the persisted record with its normalized title filled in.
func (db *DB) UpsertLead(ctx context.Context, lead types.Lead) (*types.Lead, error) {
	if lead.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("lead requires a company")
	}
	if lead.FullName == "" {
		return nil, fmt.Errorf("lead name cannot be empty")
	}
	if lead.NormalizedTitle == "" {
		lead.NormalizedTitle = normalize.Title(lead.Title)
	}

	var l types.Lead
	err := db.pool.QueryRow(ctx,
		`INSERT INTO leads (company_id, full_name, title, normalized_title, identity_key)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (identity_key) DO UPDATE SET
		   title = EXCLUDED.title,
		   normalized_title = EXCLUDED.normalized_title,
		   updated_at = NOW()
		 RETURNING id, company_id, full_name, title, normalized_title`,
		lead.CompanyID, lead.FullName, lead.Title, lead.NormalizedTitle,
		leadIdentityKey(lead.CompanyID, lead.FullName, lead.Title),
	).Scan(&l.ID, &l.CompanyID, &l.FullName, &l.Title, &l.NormalizedTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert lead: %w", err)
	}
	return &l, nil
}

// leadIdentityKey is the upsert key for a lead within its company.
func leadIdentityKey(companyID uuid.UUID, name, title string) string {
	return companyID.String() + ":" + types.EvalLeadKey(name, companyID.String(), title)
}

// ListLeadsByCompany retrieves a company's leads in insertion order.
func (db *DB) ListLeadsByCompany(ctx context.Context, companyID uuid.UUID) ([]types.Lead, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, company_id, full_name, title, COALESCE(normalized_title, '')
		 FROM leads WHERE company_id = $1 ORDER BY created_at ASC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []types.Lead
	for rows.Next() {
		var l types.Lead
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.FullName, &l.Title, &l.NormalizedTitle); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, nil
}

// SaveResults writes ranking results onto their lead rows in one batch.
// Idempotent: re-running a batch overwrites the same columns with the same
// values, and finalization passes overwrite provisional ranks.
func (db *DB) SaveResults(ctx context.Context, companyID uuid.UUID, results []types.RankingResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin result write: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, result := range results {
		rubric, err := json.Marshal(result.Rubric)
		if err != nil {
			return fmt.Errorf("failed to marshal rubric: %w", err)
		}
		flags, err := json.Marshal(result.Flags)
		if err != nil {
			return fmt.Errorf("failed to marshal flags: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE leads SET
			   is_relevant = $1, role_type = $2, score = $3, rank_within_company = $4,
			   rubric = $5, reasoning = $6, flags = $7, ranked_at = NOW()
			 WHERE id = $8 AND company_id = $9`,
			result.IsRelevant, string(result.RoleType), result.Score, result.RankWithinCompany,
			rubric, result.Reasoning, flags, result.LeadID, companyID,
		)
		if err != nil {
			return fmt.Errorf("failed to save result for lead %s: %w", result.LeadID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit result write: %w", err)
	}
	return nil
}

// RankedLead is a lead joined with its persisted ranking columns, for report
// listings.
type RankedLead struct {
	Lead   types.Lead
	Result types.RankingResult
}

// ListRankedLeads retrieves a company's leads with their ranking outcome,
// relevant leads first in rank order, then irrelevant by descending score.
func (db *DB) ListRankedLeads(ctx context.Context, companyID uuid.UUID) ([]RankedLead, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, company_id, full_name, title, COALESCE(normalized_title, ''),
		   COALESCE(is_relevant, FALSE), COALESCE(role_type, 'irrelevant'), COALESCE(score, 0),
		   rank_within_company, COALESCE(rubric, '{}'), COALESCE(reasoning, ''), COALESCE(flags, '[]')
		 FROM leads WHERE company_id = $1
		 ORDER BY rank_within_company ASC NULLS LAST, score DESC, created_at ASC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranked leads: %w", err)
	}
	defer rows.Close()

	var ranked []RankedLead
	for rows.Next() {
		var r RankedLead
		var rubric, flags []byte
		if err := rows.Scan(
			&r.Lead.ID, &r.Lead.CompanyID, &r.Lead.FullName, &r.Lead.Title, &r.Lead.NormalizedTitle,
			&r.Result.IsRelevant, &r.Result.RoleType, &r.Result.Score,
			&r.Result.RankWithinCompany, &rubric, &r.Result.Reasoning, &flags,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ranked lead: %w", err)
		}
		r.Result.LeadID = r.Lead.ID
		if err := json.Unmarshal(rubric, &r.Result.Rubric); err != nil {
			return nil, fmt.Errorf("failed to decode rubric: %w", err)
		}
		if err := json.Unmarshal(flags, &r.Result.Flags); err != nil {
			return nil, fmt.Errorf("failed to decode flags: %w", err)
		}
		ranked = append(ranked, r)
	}
	return ranked, nil
}
