// Package ranking drives the gate → batch → call → map → rank pipeline for
// one company's candidate set.
package ranking

import (
	"fmt"
	"strings"

	"github.com/jonathan/lead-ranker/internal/types"
)

// PriorityRole is one target title in a size-specific rubric.
type PriorityRole struct {
	Title         string
	Priority      int // 1-5, 5 = reach out first
	BuyingTrigger string
}

// sizeRubrics are the four fixed priority-role rubrics interpolated into the
// company-context section of the rendered instruction document.
var sizeRubrics = map[types.SizeBucket][]PriorityRole{
	types.BucketStartup: {
		{"Founder / Co-Founder", 5, "Personally runs early sales and feels every lost deal."},
		{"CEO", 5, "Still closes the company's first customers themselves."},
		{"Head of Sales", 4, "First dedicated sales hire, building process from scratch."},
		{"CFO", 3, "Approves every tool purchase at this size."},
		{"Founding Account Executive", 3, "Lives in the meeting-booking workflow daily."},
	},
	types.BucketSMB: {
		{"VP of Sales", 5, "Owns quota and the tooling budget that protects it."},
		{"Head of Revenue Operations", 4, "Owns the go-to-market stack and its integrations."},
		{"Director of Sales", 4, "Runs the team whose calendars the product fills."},
		{"CEO", 3, "Still close enough to revenue to sponsor a purchase."},
		{"Head of Marketing", 3, "Owns inbound hand-off and meeting conversion."},
		{"Sales Manager", 2, "Feels the pain daily but rarely holds budget."},
	},
	types.BucketMidMarket: {
		{"VP of Sales", 5, "Owns the number and signs for the tools behind it."},
		{"Chief Revenue Officer", 5, "Consolidates the revenue stack under one budget."},
		{"VP of Revenue Operations", 4, "Gatekeeps every addition to the GTM stack."},
		{"Senior Director of Sales", 4, "Runs the segment teams that would adopt first."},
		{"VP of Marketing", 3, "Co-owns pipeline targets with sales."},
		{"Director of Sales Development", 3, "Manages the SDR team that books the meetings."},
	},
	types.BucketEnterprise: {
		{"VP of Sales Development", 5, "Owns the global SDR organization and its stack."},
		{"Chief Revenue Officer", 4, "Sets the strategy a platform purchase must fit."},
		{"VP of Revenue Operations", 4, "Runs procurement for all revenue tooling."},
		{"Senior VP of Sales", 4, "Sponsors org-wide rollouts."},
		{"Director of GTM Systems", 3, "Evaluates and integrates new GTM tools."},
		{"VP of Demand Generation", 3, "Accountable for meeting volume from marketing spend."},
		{"Director of Sales Enablement", 2, "Drives adoption once a tool is bought."},
	},
}

// RubricFor returns the priority-role rubric for a size bucket. Unknown
// buckets get the SMB rubric, the median assumption for unlabeled companies.
func RubricFor(bucket types.SizeBucket) []PriorityRole {
	if rubric, ok := sizeRubrics[bucket]; ok {
		return rubric
	}
	return sizeRubrics[types.BucketSMB]
}

// formatRubric renders a rubric as the bulleted list interpolated into the
// prompt.
func formatRubric(rubric []PriorityRole) string {
	var sb strings.Builder
	for _, role := range rubric {
		sb.WriteString(fmt.Sprintf("- %s (priority %d): %s\n", role.Title, role.Priority, role.BuyingTrigger))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
