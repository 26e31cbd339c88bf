// Package types provides type definitions for structured data used throughout the lead-ranker system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Lead represents a single business contact to be judged against the persona rubric.
// Leads are immutable once ingested and always belong to a Company.
type Lead struct {
	ID              uuid.UUID `json:"id"`
	CompanyID       uuid.UUID `json:"company_id"`
	FullName        string    `json:"full_name"`
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"normalized_title,omitempty"`
}

// EvalLead is a ground-truth-labeled lead used only during prompt optimization.
// GroundTruthRank is nil for irrelevant leads, otherwise the 1-indexed rank
// within its company.
type EvalLead struct {
	Name            string `json:"name"`
	Company         string `json:"company"`
	Title           string `json:"title"`
	EmployeeRange   string `json:"employee_range,omitempty"`
	Industry        string `json:"industry,omitempty"`
	GroundTruthRank *int   `json:"ground_truth_rank"`
}

// Key returns the stable identity of an eval lead, derived from its
// (name, company, title) triple so labels survive re-imports.
func (e EvalLead) Key() string {
	return EvalLeadKey(e.Name, e.Company, e.Title)
}

// Relevant reports whether the lead is ground-truth relevant.
func (e EvalLead) Relevant() bool {
	return e.GroundTruthRank != nil
}

// EvalLeadKey derives a stable hash identity for a labeled lead.
func EvalLeadKey(name, company, title string) string {
	h := sha256.Sum256([]byte(strings.ToLower(name) + "|" + strings.ToLower(company) + "|" + strings.ToLower(title)))
	return hex.EncodeToString(h[:])[:16]
}
