package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"lowercases", "Head of Sales", "head of sales"},
		{"expands vp", "VP of Sales", "vice president of sales"},
		{"expands cro", "CRO", "chief revenue officer"},
		{"expands gtm", "GTM Lead", "go to market lead"},
		{"expands revops", "RevOps Manager", "revenue operations manager"},
		{"strips parenthetical", "CTO (Co-Founder)", "chief technology officer"},
		{"strips pipe suffix", "VP Sales | Acme Corp", "vice president sales"},
		{"strips at suffix", "Head of Growth @ Acme", "head of growth"},
		{"strips location tail", "Sales Director, EMEA", "sales director"},
		{"collapses whitespace", "Senior   Account  Executive", "senior account executive"},
		{"does not expand inside words", "gateway engineer", "gateway engineer"},
		{"svp expansion", "SVP Revenue", "senior vice president revenue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Title(tt.input))
		})
	}
}

func TestTitleIsPure(t *testing.T) {
	input := "VP of Sales (Interim)"
	first := Title(input)
	second := Title(input)
	assert.Equal(t, first, second)
}
