package ranking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/lead-ranker/internal/types"
)

// Score thresholds on the 0-100 scale. A score at or above the relevance
// threshold overrides a false is_relevant flag: the numeric judgment is the
// stronger signal.
const (
	RelevanceScoreThreshold     = 60.0
	DecisionMakerScoreThreshold = 80.0
)

// RawResult is one loosely-typed entry from the model's results array. IDs
// arrive as numbers or strings; is_relevant arrives as a bool or a string.
type RawResult struct {
	ID                json.RawMessage `json:"id"`
	IsRelevant        json.RawMessage `json:"is_relevant"`
	RoleType          string          `json:"role_type"`
	RankWithinCompany *int            `json:"rank_within_company"`
	Score             float64         `json:"score"`
	Rubric            types.Rubric    `json:"rubric"`
	Reasoning         string          `json:"reasoning"`
	Flags             []string        `json:"flags"`
}

// RawPayload is the decoded shape of a repaired ranking response.
type RawPayload struct {
	Results []RawResult `json:"results"`
}

// MapResults reconciles a model's short-ID result list with the real batch.
// Output cardinality always equals the batch size: unmapped and duplicate IDs
// are dropped (reported in warnings), and batch leads absent from the model
// output are filled with an explicit not-processed default.
func MapResults(payload RawPayload, shortIDs *ShortIDMap) ([]types.RankingResult, []string) {
	var warnings []string
	mapped := make(map[int]types.RankingResult, shortIDs.Len())

	for _, raw := range payload.Results {
		shortID, ok := parseShortID(raw.ID)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dropped result with unparseable id %s", string(raw.ID)))
			continue
		}
		lead, ok := shortIDs.Lead(shortID)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("dropped result with unmapped id %d", shortID))
			continue
		}
		if _, dup := mapped[shortID]; dup {
			warnings = append(warnings, fmt.Sprintf("dropped duplicate result for id %d", shortID))
			continue
		}

		score := clampScore(raw.Score)
		relevant := parseRelevant(raw.IsRelevant)
		if !relevant && score >= RelevanceScoreThreshold {
			// Trust the score over the flag.
			relevant = true
		}

		result := types.RankingResult{
			LeadID:            lead.ID,
			IsRelevant:        relevant,
			RoleType:          coerceRoleType(raw.RoleType, score),
			Score:             score,
			RankWithinCompany: raw.RankWithinCompany,
			Rubric:            raw.Rubric,
			Reasoning:         raw.Reasoning,
			Flags:             raw.Flags,
		}
		if !result.IsRelevant {
			result.RoleType = types.RoleIrrelevant
			result.RankWithinCompany = nil
		}
		mapped[shortID] = result
	}

	results := make([]types.RankingResult, 0, shortIDs.Len())
	for shortID := 1; shortID <= shortIDs.Len(); shortID++ {
		if result, ok := mapped[shortID]; ok {
			results = append(results, result)
			continue
		}
		lead, _ := shortIDs.Lead(shortID)
		results = append(results, notProcessedResult(lead))
	}
	return results, warnings
}

// notProcessedResult is the explicit default for a lead the model never
// returned. Never silently drop a candidate.
func notProcessedResult(lead types.Lead) types.RankingResult {
	return types.RankingResult{
		LeadID:     lead.ID,
		IsRelevant: false,
		RoleType:   types.RoleIrrelevant,
		Score:      0,
		Reasoning:  "not processed by model output",
		Flags:      []string{"not_processed"},
	}
}

func parseShortID(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		id := int(number)
		if float64(id) == number && id > 0 {
			return id, true
		}
		return 0, false
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if id, err := strconv.Atoi(strings.TrimSpace(str)); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func parseRelevant(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.EqualFold(strings.TrimSpace(str), "true")
	}
	return false
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// coerceRoleType forces the model's role value into the three-value enum,
// inferring from score thresholds when the value is missing or invalid.
func coerceRoleType(role string, score float64) types.RoleType {
	switch types.RoleType(strings.ToLower(strings.TrimSpace(role))) {
	case types.RoleDecisionMaker:
		return types.RoleDecisionMaker
	case types.RoleChampion:
		return types.RoleChampion
	case types.RoleIrrelevant:
		return types.RoleIrrelevant
	}
	switch {
	case score >= DecisionMakerScoreThreshold:
		return types.RoleDecisionMaker
	case score >= RelevanceScoreThreshold:
		return types.RoleChampion
	default:
		return types.RoleIrrelevant
	}
}
