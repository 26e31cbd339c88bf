//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/google/uuid"

// RoleType is the terminal classification the ranking call produces.
// The persisted lead record admits a richer taxonomy (influencer, gatekeeper,
// user) written by other systems; the ranker itself only ever emits these three.
type RoleType string

// Role type values.
const (
	RoleDecisionMaker RoleType = "decision_maker"
	RoleChampion      RoleType = "champion"
	RoleIrrelevant    RoleType = "irrelevant"
)

// Rubric holds the three 1-5 sub-scores behind a ranking decision.
type Rubric struct {
	DepartmentFit int `json:"department_fit"`
	SeniorityFit  int `json:"seniority_fit"`
	SizeFit       int `json:"size_fit"`
}

// RankingResult is the per-lead output of ranking one company's candidate set.
//
// Invariant: among results marked relevant for one company, RankWithinCompany
// values form a contiguous 1..N sequence ordered by descending score, with no
// ties and no gaps. Irrelevant results always carry a nil rank.
type RankingResult struct {
	LeadID            uuid.UUID `json:"lead_id"`
	IsRelevant        bool      `json:"is_relevant"`
	RoleType          RoleType  `json:"role_type"`
	Score             float64   `json:"score"`
	RankWithinCompany *int      `json:"rank_within_company"`
	Rubric            Rubric    `json:"rubric"`
	Reasoning         string    `json:"reasoning"`
	Flags             []string  `json:"flags,omitempty"`
}
