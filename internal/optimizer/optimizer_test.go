package optimizer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/lead-ranker/internal/llm"
	"github.com/jonathan/lead-ranker/internal/metrics"
	"github.com/jonathan/lead-ranker/internal/ranking"
	"github.com/jonathan/lead-ranker/internal/types"
)

type scriptedClient struct {
	mu       chan struct{}
	OnRank   func(call int, req llm.Request) (*llm.Completion, error)
	OnAudit  func(req llm.Request) (*llm.Completion, error)
	OnEdit   func(req llm.Request) (*llm.Completion, error)
	rankCall int
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{mu: make(chan struct{}, 1)}
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	c.mu <- struct{}{}
	defer func() { <-c.mu }()

	content := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.Contains(content, "You are auditing"):
		return c.OnAudit(req)
	case strings.Contains(content, "You are editing"):
		return c.OnEdit(req)
	default:
		c.rankCall++
		return c.OnRank(c.rankCall, req)
	}
}

type memStore struct {
	versions []*types.PromptVersion
	activeID uuid.UUID
}

func (s *memStore) ActiveVersion(context.Context) (*types.PromptVersion, error) {
	for _, v := range s.versions {
		if v.ID == s.activeID {
			return v, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateVersion(_ context.Context, text string, parentID *uuid.UUID, changeSummary string) (*types.PromptVersion, error) {
	v := &types.PromptVersion{
		ID:            uuid.New(),
		Version:       len(s.versions) + 1,
		Text:          text,
		ParentID:      parentID,
		ChangeSummary: changeSummary,
		CreatedAt:     time.Now(),
	}
	s.versions = append(s.versions, v)
	return v, nil
}

func (s *memStore) SaveVersionMetrics(_ context.Context, id uuid.UUID, m types.Metrics) error {
	for _, v := range s.versions {
		if v.ID == id {
			saved := m
			v.Metrics = &saved
			return nil
		}
	}
	return fmt.Errorf("unknown version %s", id)
}

func (s *memStore) ActivateVersion(_ context.Context, id uuid.UUID) error {
	s.activeID = id
	return nil
}

func evalSet() []types.EvalLead {
	rank1 := 1
	return []types.EvalLead{
		{Name: "Jane Doe", Company: "Acme", Title: "VP of Sales", EmployeeRange: "51-200", GroundTruthRank: &rank1},
		{Name: "John Lee", Company: "Acme", Title: "HR Generalist", EmployeeRange: "51-200"},
	}
}

func perfectRanking() (*llm.Completion, error) {
	return &llm.Completion{Text: `{"results": [{"id": 1, "is_relevant": true, "role_type": "decision_maker", "score": 95}]}`}, nil
}

func poorRanking() (*llm.Completion, error) {
	return &llm.Completion{Text: `{"results": [{"id": 1, "is_relevant": false, "score": 10}]}`}, nil
}

func newLoop(client llm.Client, store PromptStore) *Loop {
	return &Loop{
		Evaluator: &Evaluator{Client: client, Model: "gemini-2.5-flash", Concurrency: 2},
		Gradients: &Generator{Client: client, Model: "gemini-2.5-flash"},
		Editor:    &Editor{Client: client, Model: "gemini-2.5-flash"},
		Store:     store,
	}
}

func TestLoopConvergesImmediately(t *testing.T) {
	client := newScriptedClient()
	client.OnRank = func(int, llm.Request) (*llm.Completion, error) { return perfectRanking() }
	store := &memStore{}

	result, err := newLoop(client, store).Run(context.Background(), evalSet())
	require.NoError(t, err)
	assert.True(t, result.Converged)
	require.Len(t, result.Iterations, 1)
	assert.Equal(t, 1.0, result.Iterations[0].Metrics.F1)
	assert.Equal(t, 1.0, result.Iterations[0].Metrics.NDCG3)

	require.NotNil(t, result.Best)
	assert.Equal(t, 1, result.Best.Version, "seeded default document converged as-is")
	assert.Equal(t, result.Best.ID, store.activeID)
	require.NotNil(t, store.versions[0].Metrics)
}

func TestLoopImprovesAcrossIterations(t *testing.T) {
	const marker = "Prefer VP and Head-of titles over individual contributors."

	client := newScriptedClient()
	client.OnRank = func(call int, req llm.Request) (*llm.Completion, error) {
		if strings.Contains(req.Messages[1].Content, marker) {
			return perfectRanking()
		}
		return poorRanking()
	}
	client.OnAudit = func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: `{"summary": "The persona reads too narrowly.",
			"false_negative_analysis": "VP titles are being rejected.",
			"suggested_improvements": ["call out VP titles"], "confidence": "high"}`}, nil
	}
	client.OnEdit = func(llm.Request) (*llm.Completion, error) {
		edited := ranking.DefaultInstructionDocument() + "\n" + marker
		doc := fmt.Sprintf(`{"new_instruction_text": %q, "edits": [{"type": "add", "section": "PERSONA", "after": %q}], "change_summary": "broadened seniority guidance"}`, edited, marker)
		return &llm.Completion{Text: doc}, nil
	}
	store := &memStore{}

	result, err := newLoop(client, store).Run(context.Background(), evalSet())
	require.NoError(t, err)
	assert.True(t, result.Converged)
	require.Len(t, result.Iterations, 2)
	assert.Equal(t, 0.0, result.Iterations[0].Metrics.F1)
	assert.Equal(t, 1.0, result.Iterations[1].Metrics.F1)
	assert.Equal(t, "broadened seniority guidance", result.Iterations[0].ChangeSummary)

	require.NotNil(t, result.Best)
	assert.Equal(t, 2, result.Best.Version)
	assert.Equal(t, result.Best.ID, store.activeID, "best version ends up active")
	require.Len(t, store.versions, 2)
	require.NotNil(t, store.versions[1].ParentID)
	assert.Equal(t, store.versions[0].ID, *store.versions[1].ParentID)
}

func TestLoopFallsBackOnGradientFailureAndSurvivesEditFailure(t *testing.T) {
	client := newScriptedClient()
	client.OnRank = func(int, llm.Request) (*llm.Completion, error) { return poorRanking() }
	client.OnAudit = func(llm.Request) (*llm.Completion, error) {
		return nil, fmt.Errorf("audit model unavailable")
	}
	client.OnEdit = func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: "sorry, no json"}, nil
	}
	store := &memStore{}

	loop := newLoop(client, store)
	loop.MaxIterations = 2
	result, err := loop.Run(context.Background(), evalSet())
	require.NoError(t, err, "gradient and edit failures degrade, they do not abort")
	assert.False(t, result.Converged)
	require.Len(t, result.Iterations, 2, "a failed edit spends the iteration but does not end the run")
	assert.True(t, result.Iterations[0].UsedFallback)
	assert.True(t, result.Iterations[0].EditFailed)
	require.NotNil(t, result.Iterations[0].Gradient)
	assert.Equal(t, types.ConfidenceLow, result.Iterations[0].Gradient.Confidence)

	// The only evaluated version is still the best one, and stays active.
	require.NotNil(t, result.Best)
	assert.Equal(t, 1, result.Best.Version)
	assert.Equal(t, result.Best.ID, store.activeID)
	assert.Len(t, store.versions, 1)
}

func TestLoopRecoversWhenLaterEditSucceeds(t *testing.T) {
	const marker = "Prefer VP and Head-of titles over individual contributors."

	client := newScriptedClient()
	client.OnRank = func(call int, req llm.Request) (*llm.Completion, error) {
		if strings.Contains(req.Messages[1].Content, marker) {
			return perfectRanking()
		}
		return poorRanking()
	}
	client.OnAudit = func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: `{"summary": "VP titles rejected", "confidence": "high"}`}, nil
	}
	editCalls := 0
	client.OnEdit = func(llm.Request) (*llm.Completion, error) {
		editCalls++
		if editCalls == 1 {
			return &llm.Completion{Text: "sorry, no json"}, nil
		}
		edited := ranking.DefaultInstructionDocument() + "\n" + marker
		doc := fmt.Sprintf(`{"new_instruction_text": %q, "edits": [{"type": "add", "section": "PERSONA", "after": %q}], "change_summary": "broadened seniority guidance"}`, edited, marker)
		return &llm.Completion{Text: doc}, nil
	}
	store := &memStore{}

	result, err := newLoop(client, store).Run(context.Background(), evalSet())
	require.NoError(t, err)
	assert.True(t, result.Converged, "an edit after a failed one still lands")
	require.Len(t, result.Iterations, 3)
	assert.True(t, result.Iterations[0].EditFailed)
	assert.False(t, result.Iterations[1].EditFailed)
	assert.Equal(t, 1.0, result.Iterations[2].Metrics.F1)
	require.NotNil(t, result.Best)
	assert.Equal(t, 2, result.Best.Version)
	assert.Len(t, store.versions, 2)
}

func TestLoopSkipsVersionForNoOpEdit(t *testing.T) {
	client := newScriptedClient()
	client.OnRank = func(int, llm.Request) (*llm.Completion, error) { return poorRanking() }
	client.OnAudit = func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: `{"summary": "nothing actionable", "confidence": "low"}`}, nil
	}
	client.OnEdit = func(llm.Request) (*llm.Completion, error) {
		// Unchanged document, empty edit list: a well-formed refusal.
		doc := fmt.Sprintf(`{"new_instruction_text": %q, "edits": [], "change_summary": "no changes needed"}`, ranking.DefaultInstructionDocument())
		return &llm.Completion{Text: doc}, nil
	}
	store := &memStore{}

	loop := newLoop(client, store)
	loop.MaxIterations = 3
	result, err := loop.Run(context.Background(), evalSet())
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Len(t, result.Iterations, 3)
	for _, iteration := range result.Iterations {
		assert.False(t, iteration.EditFailed)
		assert.Equal(t, 1, iteration.Version, "no-op edits keep evaluating the same version")
	}
	require.Len(t, store.versions, 1, "identical documents are not re-versioned")
	assert.Equal(t, store.versions[0].ID, store.activeID)
}

func TestLoopStopsAtIterationBound(t *testing.T) {
	client := newScriptedClient()
	client.OnRank = func(int, llm.Request) (*llm.Completion, error) { return poorRanking() }
	client.OnAudit = func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: `{"summary": "still off", "confidence": "low"}`}, nil
	}
	client.OnEdit = func(llm.Request) (*llm.Completion, error) {
		edited := ranking.DefaultInstructionDocument() + "\nTry again."
		return &llm.Completion{Text: fmt.Sprintf(`{"new_instruction_text": %q, "edits": [{"type": "add", "section": "PERSONA", "after": "Try again."}], "change_summary": "retry"}`, edited)}, nil
	}
	store := &memStore{}

	loop := newLoop(client, store)
	loop.MaxIterations = 2
	result, err := loop.Run(context.Background(), evalSet())
	require.NoError(t, err)
	assert.False(t, result.Converged)
	assert.Len(t, result.Iterations, 2)
	// Iteration 1 evaluated v1 and created v2; iteration 2 evaluated v2 but
	// being the last pass created nothing further.
	assert.Len(t, store.versions, 2)
}

func TestLoopRejectsEmptyEvalSet(t *testing.T) {
	_, err := newLoop(newScriptedClient(), &memStore{}).Run(context.Background(), nil)
	require.Error(t, err)
}

func TestFallbackGradientSummarizesErrors(t *testing.T) {
	rank1 := 1
	report := &metrics.Report{
		FalsePositives: []types.EvalLead{{Name: "John Lee", Title: "HR Generalist", Company: "Acme"}},
		FalseNegatives: []types.EvalLead{{Name: "Jane Doe", Title: "VP of Sales", Company: "Acme", GroundTruthRank: &rank1}},
	}
	gradient := FallbackGradient(report)
	assert.Equal(t, types.ConfidenceLow, gradient.Confidence)
	assert.Contains(t, gradient.FalsePositiveAnalysis, "HR Generalist")
	assert.Contains(t, gradient.FalseNegativeAnalysis, "VP of Sales")
	assert.Len(t, gradient.SuggestedImprovements, 2)
}

func TestEditorRejectsDocumentMissingSections(t *testing.T) {
	client := newScriptedClient()
	client.OnEdit = func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Text: `{"new_instruction_text": "## PERSONA\nrewritten from scratch", "change_summary": "rewrote"}`}, nil
	}
	editor := &Editor{Client: client, Model: "gemini-2.5-flash"}

	_, err := editor.Edit(context.Background(), ranking.DefaultInstructionDocument(), FallbackGradient(&metrics.Report{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required section")
}

func TestGroupByCompanyIsDeterministic(t *testing.T) {
	rank1 := 1
	labeled := []types.EvalLead{
		{Name: "Kim Park", Company: "Globex", Title: "CRO", GroundTruthRank: &rank1},
		{Name: "Jane Doe", Company: "Acme", Title: "VP of Sales", GroundTruthRank: &rank1},
		{Name: "Ravi Patel", Company: "globex", Title: "AE"},
	}
	groups := groupByCompany(labeled)
	require.Len(t, groups, 2, "company grouping is case-insensitive")
	assert.Equal(t, "Acme", groups[0].name)
	assert.Len(t, groups[1].leads, 2)
}

func TestMaterializeDerivesCompanyFromLeads(t *testing.T) {
	rank1 := 1
	group := evalCompany{name: "Acme", leads: []types.EvalLead{
		{Name: "Jane Doe", Company: "Acme", Title: "VP of Sales", EmployeeRange: "51-200", Industry: "Logistics", GroundTruthRank: &rank1},
	}}
	company, leads, keyByLeadID := group.materialize()

	assert.Equal(t, types.BucketSMB, company.SizeBucket)
	assert.Equal(t, "Logistics", company.Industry)
	require.Len(t, leads, 1)
	assert.Equal(t, group.leads[0].Key(), keyByLeadID[leads[0].ID])
}
