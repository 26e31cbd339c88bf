package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/normalize"
	"github.com/jonathan/lead-ranker/internal/prefilter"
	"github.com/jonathan/lead-ranker/internal/schemas"
	"github.com/jonathan/lead-ranker/internal/types"
)

// Tunable pipeline constants. DefaultBatchSize bounds one LLM call's
// candidate manifest; it is a burst-rate knob, not an architectural limit.
const (
	DefaultBatchSize   = 10
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 2 * time.Second
)

// ResultSink receives incremental persistence writes so partial progress
// survives a mid-run failure. Writes must be idempotent upserts keyed by
// lead identity.
type ResultSink interface {
	SaveResults(ctx context.Context, companyID uuid.UUID, results []types.RankingResult) error
}

// Orchestrator drives the gate → batch → call → map → rank pipeline for one
// company's candidate set.
type Orchestrator struct {
	Client      llm.Client
	Model       string
	APIKey      string
	Sink        ResultSink
	BatchSize   int
	MaxAttempts int
	BackoffBase time.Duration
	Verbose     bool
}

// Outcome is the result of ranking one company.
type Outcome struct {
	Results     []types.RankingResult
	Excluded    int
	Unprocessed int
	Partial     bool
}

// Rank ranks a company's leads against an instruction document. The returned
// result list always has exactly one entry per input lead, except for leads
// left unprocessed by a provider-exhaustion halt (counted in Unprocessed).
func (o *Orchestrator) Rank(ctx context.Context, company types.Company, leads []types.Lead, instructionDoc string) (*Outcome, error) {
	if company.SizeBucket == types.BucketUnknown && company.EmployeeRange != "" {
		company.SizeBucket, _ = normalize.SizeBucket(company.EmployeeRange)
	}

	outcome := &Outcome{}
	var survivors []types.Lead

	for i := range leads {
		lead := leads[i]
		if lead.NormalizedTitle == "" {
			lead.NormalizedTitle = normalize.Title(lead.Title)
		}
		decision := prefilter.Evaluate(lead.Title, lead.NormalizedTitle, company.SizeBucket)
		if !decision.ShouldExclude {
			survivors = append(survivors, lead)
			continue
		}
		outcome.Excluded++
		outcome.Results = append(outcome.Results, types.RankingResult{
			LeadID:     lead.ID,
			IsRelevant: false,
			RoleType:   types.RoleIrrelevant,
			Score:      0,
			Reasoning:  fmt.Sprintf("excluded by prefilter: %s", decision.Reason),
			Flags:      []string{"prefilter:" + decision.Code},
		})
	}

	// Gate-excluded leads are persisted before the first LLM call is made.
	if err := o.persist(ctx, company.ID, outcome.Results); err != nil {
		return nil, err
	}

	batchSize := o.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for start := 0; start < len(survivors); start += batchSize {
		end := min(start+batchSize, len(survivors))
		batch := survivors[start:end]

		batchResults, err := o.rankBatch(ctx, company, batch, instructionDoc)
		if err != nil {
			var exhausted *llm.ProviderExhaustedError
			if errors.As(err, &exhausted) {
				// Everything persisted so far stays valid; the remaining
				// batches are skipped rather than failing the company.
				outcome.Partial = true
				outcome.Unprocessed = len(survivors) - start
				if o.Verbose {
					fmt.Printf("  provider exhausted, halting company with %d leads unprocessed: %s\n",
						outcome.Unprocessed, exhausted.Diagnosis())
				}
				break
			}
			return nil, err
		}

		provisionalRank(batchResults)
		if err := o.persist(ctx, company.ID, batchResults); err != nil {
			return nil, err
		}
		outcome.Results = append(outcome.Results, batchResults...)
	}

	FinalizeRanks(outcome.Results)
	if err := o.persist(ctx, company.ID, outcome.Results); err != nil {
		return nil, err
	}
	return outcome, nil
}

// rankBatch executes one prompt/call/extract/map cycle with bounded retries
// and exponential backoff on retryable failures.
func (o *Orchestrator) rankBatch(ctx context.Context, company types.Company, batch []types.Lead, instructionDoc string) ([]types.RankingResult, error) {
	prompt, shortIDs := BuildBatchPrompt(instructionDoc, company, batch)

	maxAttempts := o.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := o.BackoffBase
	if backoff <= 0 {
		backoff = DefaultBackoffBase
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff << (attempt - 1)):
			}
		}

		completion, err := o.Client.Complete(ctx, llm.Request{
			Model:  o.Model,
			APIKey: o.APIKey,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: SystemMessage()},
				{Role: llm.RoleUser, Content: prompt},
			},
		})
		if err != nil {
			var exhausted *llm.ProviderExhaustedError
			if errors.As(err, &exhausted) {
				return nil, err
			}
			lastErr = err
			continue
		}

		payload, err := decodePayload(completion.Text)
		if err != nil {
			lastErr = err
			continue
		}

		results, warnings := MapResults(payload, shortIDs)
		if o.Verbose {
			for _, warning := range warnings {
				fmt.Printf("  mapper: %s\n", warning)
			}
		}
		return results, nil
	}

	return nil, fmt.Errorf("batch failed after %d attempts: %w", maxAttempts, lastErr)
}

// decodePayload repairs, validates and decodes one completion into the raw
// results payload.
func decodePayload(text string) (RawPayload, error) {
	extraction := llm.Extract(text)
	if err := extraction.Err(); err != nil {
		return RawPayload{}, err
	}
	if err := schemas.ValidateRankingResponse(extraction.JSON); err != nil {
		return RawPayload{}, err
	}
	var payload RawPayload
	if err := json.Unmarshal(extraction.JSON, &payload); err != nil {
		return RawPayload{}, fmt.Errorf("failed to decode ranking payload: %w", err)
	}
	return payload, nil
}

func (o *Orchestrator) persist(ctx context.Context, companyID uuid.UUID, results []types.RankingResult) error {
	if o.Sink == nil || len(results) == 0 {
		return nil
	}
	if err := o.Sink.SaveResults(ctx, companyID, results); err != nil {
		return fmt.Errorf("failed to persist ranking results: %w", err)
	}
	return nil
}

// provisionalRank assigns best-effort ranks within one batch for incremental
// UI feedback. These are always superseded by FinalizeRanks.
func provisionalRank(results []types.RankingResult) {
	assignRanks(results)
}

// FinalizeRanks recomputes authoritative ranks across a whole company:
// every relevant result sorted by score descending and assigned 1..N
// contiguously; irrelevant results get a nil rank.
func FinalizeRanks(results []types.RankingResult) {
	assignRanks(results)
}

func assignRanks(results []types.RankingResult) {
	relevant := make([]*types.RankingResult, 0, len(results))
	for i := range results {
		if results[i].IsRelevant {
			relevant = append(relevant, &results[i])
		} else {
			results[i].RankWithinCompany = nil
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})
	for i, result := range relevant {
		rank := i + 1
		result.RankWithinCompany = &rank
	}
}
