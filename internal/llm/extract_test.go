package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWellFormedObject(t *testing.T) {
	input := `{"results":[{"id":1,"score":90},{"id":2,"score":40}]}`
	extraction := Extract(input)

	require.Equal(t, StatusOK, extraction.Status)
	assert.JSONEq(t, input, string(extraction.JSON))
	assert.Zero(t, extraction.Dropped)
}

func TestExtractIdempotence(t *testing.T) {
	input := `{"results":[{"id":1,"is_relevant":true}]}`
	first := Extract(input)
	second := Extract(string(first.JSON))

	require.Equal(t, StatusOK, first.Status)
	require.Equal(t, StatusOK, second.Status)
	assert.Equal(t, string(first.JSON), string(second.JSON))
}

func TestExtractCodeFence(t *testing.T) {
	input := "```json\n{\"results\":[{\"id\":1}]}\n```"
	extraction := Extract(input)

	require.Equal(t, StatusOK, extraction.Status)
	assert.JSONEq(t, `{"results":[{"id":1}]}`, string(extraction.JSON))
}

func TestExtractThinkingTags(t *testing.T) {
	input := "<think>let me reason about this batch...</think>\n{\"results\":[{\"id\":1}]}"
	extraction := Extract(input)

	require.Equal(t, StatusOK, extraction.Status)
	assert.JSONEq(t, `{"results":[{"id":1}]}`, string(extraction.JSON))
}

func TestExtractBareArrayWrapped(t *testing.T) {
	extraction := Extract(`[{"id":1,"score":80}]`)

	require.Equal(t, StatusOK, extraction.Status)
	assert.JSONEq(t, `{"results":[{"id":1,"score":80}]}`, string(extraction.JSON))
}

func TestExtractSurroundingProse(t *testing.T) {
	input := "Here is the ranking you asked for:\n{\"results\":[{\"id\":1}]}\nLet me know if you need anything else."
	extraction := Extract(input)

	require.Equal(t, StatusOK, extraction.Status)
	assert.JSONEq(t, `{"results":[{"id":1}]}`, string(extraction.JSON))
}

func TestExtractTruncatedResultsArray(t *testing.T) {
	// Second element cut off mid-stream; the first must survive.
	input := `{"results":[{"id":1,"is_relevant":true,"score":92},{"id":2,"is_rel`
	extraction := Extract(input)

	require.Equal(t, StatusRepairedPartial, extraction.Status)
	assert.Equal(t, 1, extraction.Dropped)

	var payload struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(extraction.JSON, &payload))
	require.Len(t, payload.Results, 1)
	assert.Equal(t, float64(1), payload.Results[0]["id"])
}

func TestExtractTruncationKeepsAllClosedElements(t *testing.T) {
	input := `{"results":[{"id":1},{"id":2},{"id":3},{"id":4,"reasoning":"cut of`
	extraction := Extract(input)

	require.Equal(t, StatusRepairedPartial, extraction.Status)

	var payload struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(extraction.JSON, &payload))
	assert.Len(t, payload.Results, 3)
}

func TestExtractGenericRepair(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unbalanced braces", `{"summary":"missing close"`},
		{"trailing comma", `{"summary":"x","items":["a","b",`},
		{"open string", `{"summary":"trailing text`},
		{"dangling escape", `{"summary":"ends in escape\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extraction := Extract(tt.input)
			require.NotEqual(t, StatusUnparseable, extraction.Status, "input should be repairable")
			assert.True(t, json.Valid(extraction.JSON))
		})
	}
}

func TestExtractDoubleQuotedPayload(t *testing.T) {
	inner := `{"results":[{"id":1}]}`
	quoted, err := json.Marshal(inner)
	require.NoError(t, err)

	extraction := Extract(string(quoted))
	require.NotEqual(t, StatusUnparseable, extraction.Status)
	assert.JSONEq(t, inner, string(extraction.JSON))
}

func TestExtractUnparseable(t *testing.T) {
	extraction := Extract("I could not produce a ranking for this batch, sorry.")

	require.Equal(t, StatusUnparseable, extraction.Status)
	assert.NotEmpty(t, extraction.Snippet)
	require.Error(t, extraction.Err())
}

func TestExtractSnippetBounded(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	extraction := Extract(string(long))

	require.Equal(t, StatusUnparseable, extraction.Status)
	assert.LessOrEqual(t, len(extraction.Snippet), snippetLimit)
}

func TestExtractEmptyInput(t *testing.T) {
	extraction := Extract("")
	assert.Equal(t, StatusUnparseable, extraction.Status)
	assert.NoError(t, Extract(`{"ok":true}`).Err())
}
