//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// PromptVersion is one immutable version of the ranking instruction document.
// Versions are never deleted, only deactivated; exactly one version is active
// at a time within an optimization scope.
type PromptVersion struct {
	ID            uuid.UUID `json:"id"`
	Version       int       `json:"version"`
	Text          string    `json:"text"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	ChangeSummary string    `json:"change_summary,omitempty"`
	Metrics       *Metrics  `json:"metrics,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Metrics is one evaluation's aggregate ranking quality.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	NDCG3     float64 `json:"ndcg_at_3"`
	Composite float64 `json:"composite"`
}

// CompositeWeight* are the fixed blend weights used to order prompt versions.
const (
	CompositeWeightF1    = 0.6
	CompositeWeightNDCG3 = 0.4
)

// ComputeComposite returns the fixed weighted blend of F1 and NDCG@3 used as
// the sole ordering criterion between instruction-document versions.
func ComputeComposite(f1, ndcg3 float64) float64 {
	return CompositeWeightF1*f1 + CompositeWeightNDCG3*ndcg3
}
