package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/lead-ranker/internal/normalize"
	"github.com/jonathan/lead-ranker/internal/types"
)

// UpsertCompany creates or refreshes a company keyed by normalized name and
// returns the persisted record. The size bucket is derived from the employee
// range at write time so readers never re-derive it.
func (db *DB) UpsertCompany(ctx context.Context, company types.Company) (*types.Company, error) {
	normalized := NormalizeName(company.Name)
	if normalized == "" {
		return nil, fmt.Errorf("company name cannot be empty")
	}
	if company.SizeBucket == types.BucketUnknown && company.EmployeeRange != "" {
		company.SizeBucket, _ = normalize.SizeBucket(company.EmployeeRange)
	}

	var c types.Company
	err := db.pool.QueryRow(ctx,
		`INSERT INTO companies (name, name_normalized, domain, employee_range, size_bucket, industry, context_summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (name_normalized) DO UPDATE SET
		   domain = COALESCE(NULLIF(EXCLUDED.domain, ''), companies.domain),
		   employee_range = COALESCE(NULLIF(EXCLUDED.employee_range, ''), companies.employee_range),
		   size_bucket = COALESCE(NULLIF(EXCLUDED.size_bucket, ''), companies.size_bucket),
		   industry = COALESCE(NULLIF(EXCLUDED.industry, ''), companies.industry),
		   context_summary = COALESCE(NULLIF(EXCLUDED.context_summary, ''), companies.context_summary),
		   updated_at = NOW()
		 RETURNING id, name, COALESCE(domain, ''), COALESCE(employee_range, ''),
		   COALESCE(size_bucket, ''), COALESCE(industry, ''), COALESCE(context_summary, '')`,
		company.Name, normalized, company.Domain, company.EmployeeRange,
		string(company.SizeBucket), company.Industry, company.ContextSummary,
	).Scan(&c.ID, &c.Name, &c.Domain, &c.EmployeeRange, &c.SizeBucket, &c.Industry, &c.ContextSummary)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert company: %w", err)
	}
	return &c, nil
}

// GetCompanyByName retrieves a company by normalized-name lookup. Returns
// (nil, nil) when absent.
func (db *DB) GetCompanyByName(ctx context.Context, name string) (*types.Company, error) {
	var c types.Company
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(domain, ''), COALESCE(employee_range, ''),
		   COALESCE(size_bucket, ''), COALESCE(industry, ''), COALESCE(context_summary, '')
		 FROM companies WHERE name_normalized = $1`,
		NormalizeName(name),
	).Scan(&c.ID, &c.Name, &c.Domain, &c.EmployeeRange, &c.SizeBucket, &c.Industry, &c.ContextSummary)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// GetCompanyByID retrieves a company by its UUID. Returns (nil, nil) when
// absent.
func (db *DB) GetCompanyByID(ctx context.Context, id uuid.UUID) (*types.Company, error) {
	var c types.Company
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(domain, ''), COALESCE(employee_range, ''),
		   COALESCE(size_bucket, ''), COALESCE(industry, ''), COALESCE(context_summary, '')
		 FROM companies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Domain, &c.EmployeeRange, &c.SizeBucket, &c.Industry, &c.ContextSummary)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// ListCompanies retrieves companies pending ranking, oldest first, up to
// limit. A zero limit means all pending companies.
func (db *DB) ListCompanies(ctx context.Context, status types.RunStatus, limit int) ([]types.Company, error) {
	query := `SELECT id, name, COALESCE(domain, ''), COALESCE(employee_range, ''),
	   COALESCE(size_bucket, ''), COALESCE(industry, ''), COALESCE(context_summary, '')
	 FROM companies`
	args := []any{}
	if status != "" {
		query += ` WHERE ranking_status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []types.Company
	for rows.Next() {
		var c types.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.EmployeeRange, &c.SizeBucket, &c.Industry, &c.ContextSummary); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, nil
}

// SetCompanyStatus records a company's ranking run state.
func (db *DB) SetCompanyStatus(ctx context.Context, companyID uuid.UUID, status types.RunStatus) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE companies SET ranking_status = $1, ranked_at = CASE WHEN $1 IN ('completed', 'partially_completed') THEN NOW() ELSE ranked_at END
		 WHERE id = $2`,
		string(status), companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to set company status: %w", err)
	}
	return nil
}
