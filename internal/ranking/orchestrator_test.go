package ranking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/types"
)

type mockClient struct {
	calls        int
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Completion, error)
}

func (m *mockClient) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	m.calls++
	return m.CompleteFunc(ctx, req)
}

type recordingSink struct {
	mu    sync.Mutex
	saves int
	last  map[uuid.UUID]types.RankingResult
}

func newRecordingSink() *recordingSink {
	return &recordingSink{last: make(map[uuid.UUID]types.RankingResult)}
}

func (s *recordingSink) SaveResults(_ context.Context, _ uuid.UUID, results []types.RankingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	for _, result := range results {
		s.last[result.LeadID] = result
	}
	return nil
}

func textCompletion(text string) *llm.Completion {
	return &llm.Completion{Text: text, Model: "gemini-2.5-flash"}
}

func newTestOrchestrator(client llm.Client, sink ResultSink) *Orchestrator {
	return &Orchestrator{
		Client:      client,
		Model:       "gemini-2.5-flash",
		Sink:        sink,
		BatchSize:   DefaultBatchSize,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
	}
}

func TestRankGatesPersistsAndRanks(t *testing.T) {
	company := types.Company{ID: uuid.New(), Name: "Acme", EmployeeRange: "51-200"}
	jane := types.Lead{ID: uuid.New(), CompanyID: company.ID, FullName: "Jane Doe", Title: "VP of Sales"}
	john := types.Lead{ID: uuid.New(), CompanyID: company.ID, FullName: "John Lee", Title: "HR Generalist"}

	client := &mockClient{CompleteFunc: func(_ context.Context, req llm.Request) (*llm.Completion, error) {
		// The gated lead never reaches the model.
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Jane Doe")
		assert.NotContains(t, req.Messages[1].Content, "John Lee")
		return textCompletion(`{"results": [{"id": 1, "is_relevant": true, "role_type": "decision_maker",
			"score": 92, "rank_within_company": 1,
			"rubric": {"department_fit": 5, "seniority_fit": 5, "size_fit": 4},
			"reasoning": "VP of Sales owns the buying decision at this size."}]}`), nil
	}}
	sink := newRecordingSink()
	o := newTestOrchestrator(client, sink)

	outcome, err := o.Rank(context.Background(), company, []types.Lead{jane, john}, DefaultInstructionDocument())
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, 1, outcome.Excluded)
	assert.Equal(t, 0, outcome.Unprocessed)
	assert.False(t, outcome.Partial)
	assert.Equal(t, 1, client.calls)

	byLead := make(map[uuid.UUID]types.RankingResult)
	for _, result := range outcome.Results {
		byLead[result.LeadID] = result
	}

	janeResult := byLead[jane.ID]
	assert.True(t, janeResult.IsRelevant)
	assert.Equal(t, types.RoleDecisionMaker, janeResult.RoleType)
	require.NotNil(t, janeResult.RankWithinCompany)
	assert.Equal(t, 1, *janeResult.RankWithinCompany)

	johnResult := byLead[john.ID]
	assert.False(t, johnResult.IsRelevant)
	assert.Nil(t, johnResult.RankWithinCompany)
	assert.Contains(t, johnResult.Flags, "prefilter:HR")

	// Exclusions are persisted before the batch, the batch after mapping,
	// and the final ranks once more.
	assert.Equal(t, 3, sink.saves)
	assert.Len(t, sink.last, 2)
}

func TestRankRetriesUnparseableThenSucceeds(t *testing.T) {
	company := types.Company{ID: uuid.New(), Name: "Acme", SizeBucket: types.BucketSMB}
	lead := types.Lead{ID: uuid.New(), FullName: "Jane Doe", Title: "VP of Sales"}

	client := &mockClient{}
	client.CompleteFunc = func(_ context.Context, _ llm.Request) (*llm.Completion, error) {
		if client.calls == 1 {
			return textCompletion("I cannot produce JSON today."), nil
		}
		return textCompletion(`{"results": [{"id": 1, "is_relevant": true, "score": 88}]}`), nil
	}
	o := newTestOrchestrator(client, newRecordingSink())

	outcome, err := o.Rank(context.Background(), company, []types.Lead{lead}, DefaultInstructionDocument())
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	require.Len(t, outcome.Results, 1)
	assert.True(t, outcome.Results[0].IsRelevant)
}

func TestRankBatchExhaustsAttempts(t *testing.T) {
	company := types.Company{ID: uuid.New(), Name: "Acme", SizeBucket: types.BucketSMB}
	lead := types.Lead{ID: uuid.New(), FullName: "Jane Doe", Title: "VP of Sales"}

	client := &mockClient{CompleteFunc: func(_ context.Context, _ llm.Request) (*llm.Completion, error) {
		return textCompletion("no json here"), nil
	}}
	o := newTestOrchestrator(client, newRecordingSink())

	_, err := o.Rank(context.Background(), company, []types.Lead{lead}, DefaultInstructionDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, client.calls)
}

func TestRankProviderExhaustionHaltsPartially(t *testing.T) {
	company := types.Company{ID: uuid.New(), Name: "Acme", SizeBucket: types.BucketMidMarket}
	leads := make([]types.Lead, 0, 12)
	for i := 0; i < 12; i++ {
		leads = append(leads, types.Lead{ID: uuid.New(), FullName: fmt.Sprintf("Lead %d", i), Title: "Sales Director"})
	}

	client := &mockClient{}
	client.CompleteFunc = func(_ context.Context, _ llm.Request) (*llm.Completion, error) {
		if client.calls == 1 {
			return textCompletion(`{"results": [{"id": 1, "is_relevant": true, "score": 90},
				{"id": 2, "is_relevant": true, "score": 85}]}`), nil
		}
		return nil, &llm.ProviderExhaustedError{
			Family:    llm.FamilyGemini,
			Attempted: []string{"gemini-2.5-pro", "gemini-2.5-flash"},
			LastErr:   &llm.APIError{StatusCode: 429, Model: "gemini-2.5-flash"},
		}
	}
	sink := newRecordingSink()
	o := newTestOrchestrator(client, sink)

	outcome, err := o.Rank(context.Background(), company, leads, DefaultInstructionDocument())
	require.NoError(t, err, "exhaustion is a partial outcome, not a company failure")
	assert.True(t, outcome.Partial)
	assert.Equal(t, 2, outcome.Unprocessed)
	assert.Len(t, outcome.Results, 10)
	// The first batch's work was persisted before the halt.
	assert.Len(t, sink.last, 10)
}

func TestFinalizeRanksContiguousByScore(t *testing.T) {
	rank9 := 9
	results := []types.RankingResult{
		{LeadID: uuid.New(), IsRelevant: true, Score: 70},
		{LeadID: uuid.New(), IsRelevant: false, Score: 0, RankWithinCompany: &rank9},
		{LeadID: uuid.New(), IsRelevant: true, Score: 95},
		{LeadID: uuid.New(), IsRelevant: true, Score: 82},
	}
	FinalizeRanks(results)

	require.NotNil(t, results[2].RankWithinCompany)
	assert.Equal(t, 1, *results[2].RankWithinCompany)
	assert.Equal(t, 2, *results[3].RankWithinCompany)
	assert.Equal(t, 3, *results[0].RankWithinCompany)
	assert.Nil(t, results[1].RankWithinCompany)
}

func TestRunCompanyStatusTransitions(t *testing.T) {
	company := types.Company{ID: uuid.New(), Name: "Acme", SizeBucket: types.BucketSMB}
	lead := types.Lead{ID: uuid.New(), FullName: "Jane Doe", Title: "VP of Sales"}

	client := &mockClient{CompleteFunc: func(_ context.Context, _ llm.Request) (*llm.Completion, error) {
		return textCompletion(`{"results": [{"id": 1, "is_relevant": true, "score": 88}]}`), nil
	}}
	store := &mockStore{recordingSink: newRecordingSink()}
	o := newTestOrchestrator(client, store)

	jobID := uuid.New()
	outcome, err := RunCompany(context.Background(), store, o, jobID, company, []types.Lead{lead}, DefaultInstructionDocument())
	require.NoError(t, err)
	assert.False(t, outcome.Partial)
	assert.Equal(t, []types.RunStatus{types.StatusRunning, types.StatusCompleted}, store.statuses)
	assert.Equal(t, 1, store.completed)
	assert.Equal(t, 0, store.failed)
}

type mockStore struct {
	*recordingSink
	statuses    []types.RunStatus
	completed   int
	failed      int
	unprocessed int
}

func (s *mockStore) SetCompanyStatus(_ context.Context, _ uuid.UUID, status types.RunStatus) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *mockStore) UpdateJobCounters(_ context.Context, _ uuid.UUID, completed, failed, unprocessed int) error {
	s.completed += completed
	s.failed += failed
	s.unprocessed += unprocessed
	return nil
}
