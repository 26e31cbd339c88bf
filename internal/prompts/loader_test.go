package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownPrompts(t *testing.T) {
	for _, key := range []string{"system", "instruction-document", "company-context"} {
		template, err := Get("ranking.json", key)
		require.NoError(t, err, "key %s", key)
		assert.NotEmpty(t, template)
	}
	for _, key := range []string{"gradient", "editor"} {
		template, err := Get("optimizer.json", key)
		require.NoError(t, err, "key %s", key)
		assert.NotEmpty(t, template)
	}
}

func TestGetMissingKey(t *testing.T) {
	_, err := Get("ranking.json", "no-such-key")
	require.Error(t, err)

	_, err = Get("missing.json", "system")
	require.Error(t, err)
}

func TestInstructionDocumentCarriesSectionMarkers(t *testing.T) {
	doc := MustGet("ranking.json", "instruction-document")
	assert.True(t, strings.Contains(doc, "## COMPANY CONTEXT"))
	assert.True(t, strings.Contains(doc, "## CANDIDATES"))
	assert.True(t, strings.Contains(doc, "## OUTPUT FORMAT"))
	assert.Contains(t, doc, `"results"`)
}

func TestFormat(t *testing.T) {
	out := Format("Company: {{.Name}} ({{.Size}})", map[string]string{
		"Name": "Acme",
		"Size": "smb",
	})
	assert.Equal(t, "Company: Acme (smb)", out)
}

func TestFormatLeavesUnknownPlaceholders(t *testing.T) {
	out := Format("{{.Known}} {{.Unknown}}", map[string]string{"Known": "x"})
	assert.Equal(t, "x {{.Unknown}}", out)
}
