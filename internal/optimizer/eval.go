package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/metrics"
	"github.com/jonathan/lead-ranker/internal/normalize"
	"github.com/jonathan/lead-ranker/internal/ranking"
	"github.com/jonathan/lead-ranker/internal/types"
)

// DefaultEvalConcurrency bounds how many companies rank in parallel during an
// evaluation pass. Eval sets span many companies and the calls are
// independent, so this is the loop's main wall-clock lever.
const DefaultEvalConcurrency = 8

// Evaluator ranks a labeled eval set against a candidate instruction
// document and returns per-lead predictions for scoring.
type Evaluator struct {
	Client      llm.Client
	Model       string
	APIKey      string
	Concurrency int
	Verbose     bool
}

// Predict ranks every company in the eval set concurrently against the given
// instruction document and returns the prediction map keyed by eval-lead
// identity. A company whose ranking fails fails the whole pass: a
// partially-evaluated version cannot be compared fairly against
// fully-evaluated ones.
func (e *Evaluator) Predict(ctx context.Context, labeled []types.EvalLead, instructionDoc string) (map[string]metrics.Prediction, error) {
	companies := groupByCompany(labeled)

	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultEvalConcurrency
	}

	predictions := make(map[string]metrics.Prediction, len(labeled))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i := range companies {
		batch := companies[i]
		group.Go(func() error {
			company, leads, keyByLeadID := batch.materialize()

			orchestrator := &ranking.Orchestrator{
				Client:  e.Client,
				Model:   e.Model,
				APIKey:  e.APIKey,
				Verbose: e.Verbose,
			}
			outcome, err := orchestrator.Rank(groupCtx, company, leads, instructionDoc)
			if err != nil {
				return fmt.Errorf("eval ranking failed for %s: %w", company.Name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, result := range outcome.Results {
				key, ok := keyByLeadID[result.LeadID]
				if !ok {
					continue
				}
				predictions[key] = metrics.Prediction{
					Relevant: result.IsRelevant,
					Rank:     result.RankWithinCompany,
					Score:    result.Score,
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return predictions, nil
}

// evalCompany is one company's slice of the eval set.
type evalCompany struct {
	name  string
	leads []types.EvalLead
}

func groupByCompany(labeled []types.EvalLead) []evalCompany {
	index := make(map[string]int)
	var groups []evalCompany
	for _, lead := range labeled {
		key := strings.ToLower(lead.Company)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, evalCompany{name: lead.Company})
		}
		groups[i].leads = append(groups[i].leads, lead)
	}
	// Deterministic evaluation order regardless of input ordering.
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].name) < strings.ToLower(groups[j].name)
	})
	return groups
}

// materialize builds the synthetic company and lead records a ranking run
// needs, plus the reverse map from generated lead ID to eval-lead key.
func (c evalCompany) materialize() (types.Company, []types.Lead, map[uuid.UUID]string) {
	company := types.Company{
		ID:   uuid.New(),
		Name: c.name,
	}
	for _, lead := range c.leads {
		if company.EmployeeRange == "" && lead.EmployeeRange != "" {
			company.EmployeeRange = lead.EmployeeRange
		}
		if company.Industry == "" && lead.Industry != "" {
			company.Industry = lead.Industry
		}
	}
	company.SizeBucket, _ = normalize.SizeBucket(company.EmployeeRange)

	leads := make([]types.Lead, 0, len(c.leads))
	keyByLeadID := make(map[uuid.UUID]string, len(c.leads))
	for _, evalLead := range c.leads {
		lead := types.Lead{
			ID:        uuid.New(),
			CompanyID: company.ID,
			FullName:  evalLead.Name,
			Title:     evalLead.Title,
		}
		leads = append(leads, lead)
		keyByLeadID[lead.ID] = evalLead.Key()
	}
	return company, leads, keyByLeadID
}
