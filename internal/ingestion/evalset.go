package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/lead-ranker/internal/types"
)

// LoadEvalSet reads a labeled eval set: a JSON array of leads with
// ground_truth_rank (null marks an irrelevant lead). Validates that ranks
// within each company form a contiguous 1..N sequence, since a mislabeled
// eval set silently corrupts every optimization run scored against it.
func LoadEvalSet(path string) ([]types.EvalLead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval set %s: %w", path, err)
	}

	var labeled []types.EvalLead
	if err := json.Unmarshal(data, &labeled); err != nil {
		return nil, fmt.Errorf("failed to parse eval set JSON: %w", err)
	}
	if len(labeled) == 0 {
		return nil, fmt.Errorf("eval set is empty")
	}

	seen := make(map[string]bool, len(labeled))
	ranksByCompany := make(map[string][]int)
	for i, lead := range labeled {
		if lead.Name == "" || lead.Company == "" || lead.Title == "" {
			return nil, fmt.Errorf("eval lead %d: name, company and title are required", i)
		}
		key := lead.Key()
		if seen[key] {
			return nil, fmt.Errorf("eval lead %d: duplicate entry for %s at %s", i, lead.Name, lead.Company)
		}
		seen[key] = true

		if lead.GroundTruthRank != nil {
			if *lead.GroundTruthRank < 1 {
				return nil, fmt.Errorf("eval lead %d: ground_truth_rank must be >= 1, got %d", i, *lead.GroundTruthRank)
			}
			company := strings.ToLower(lead.Company)
			ranksByCompany[company] = append(ranksByCompany[company], *lead.GroundTruthRank)
		}
	}

	for company, ranks := range ranksByCompany {
		present := make(map[int]bool, len(ranks))
		for _, rank := range ranks {
			if present[rank] {
				return nil, fmt.Errorf("company %s: duplicate ground_truth_rank %d", company, rank)
			}
			present[rank] = true
		}
		for want := 1; want <= len(ranks); want++ {
			if !present[want] {
				return nil, fmt.Errorf("company %s: ground truth ranks are not contiguous, missing %d", company, want)
			}
		}
	}

	return labeled, nil
}
