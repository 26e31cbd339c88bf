// Package ingestion loads lead lists and labeled eval sets from JSON files
// and validates them before they enter the pipeline.
package ingestion

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/lead-ranker/internal/normalize"
	"github.com/jonathan/lead-ranker/internal/types"
)

// CompanyInput is the company block of a lead file.
type CompanyInput struct {
	Name           string `json:"name" validate:"required,min=1"`
	Domain         string `json:"domain,omitempty"`
	EmployeeRange  string `json:"employee_range,omitempty"`
	Industry       string `json:"industry,omitempty"`
	ContextSummary string `json:"context_summary,omitempty"`
}

// LeadInput is one candidate row of a lead file.
type LeadInput struct {
	FullName string `json:"full_name" validate:"required,min=1"`
	Title    string `json:"title" validate:"required,min=1"`
}

// LeadFile is the file-mode input format: one company and its candidates.
type LeadFile struct {
	Company CompanyInput `json:"company" validate:"required"`
	Leads   []LeadInput  `json:"leads" validate:"required,min=1,dive"`
}

// Import is a lead file materialized into domain records, with generated IDs
// so a file-mode run can flow through the same pipeline as a DB-backed one.
type Import struct {
	Company types.Company
	Leads   []types.Lead
}

// LoadLeadFile reads, validates and materializes a lead file.
func LoadLeadFile(path string) (*Import, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lead file %s: %w", path, err)
	}

	var file LeadFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lead file JSON: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid lead file: %w", err)
	}

	company := types.Company{
		ID:             uuid.New(),
		Name:           file.Company.Name,
		Domain:         file.Company.Domain,
		EmployeeRange:  file.Company.EmployeeRange,
		Industry:       file.Company.Industry,
		ContextSummary: file.Company.ContextSummary,
	}
	company.SizeBucket, _ = normalize.SizeBucket(company.EmployeeRange)

	leads := make([]types.Lead, 0, len(file.Leads))
	for _, input := range file.Leads {
		leads = append(leads, types.Lead{
			ID:              uuid.New(),
			CompanyID:       company.ID,
			FullName:        input.FullName,
			Title:           input.Title,
			NormalizedTitle: normalize.Title(input.Title),
		})
	}

	return &Import{Company: company, Leads: leads}, nil
}
