//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/google/uuid"

// SizeBucket is the ordinal size category derived from a company's free-text
// employee range. BucketUnknown means the range could not be mapped; callers
// must treat it as its own category, never as a failure.
type SizeBucket string

// Size bucket values, smallest to largest.
const (
	BucketStartup    SizeBucket = "startup"
	BucketSMB        SizeBucket = "smb"
	BucketMidMarket  SizeBucket = "mid_market"
	BucketEnterprise SizeBucket = "enterprise"
	BucketUnknown    SizeBucket = ""
)

// Company is the grouping context for ranking a batch of leads.
type Company struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Domain         string     `json:"domain,omitempty"`
	EmployeeRange  string     `json:"employee_range,omitempty"`
	SizeBucket     SizeBucket `json:"size_bucket,omitempty"`
	Industry       string     `json:"industry,omitempty"`
	ContextSummary string     `json:"context_summary,omitempty"`
}
