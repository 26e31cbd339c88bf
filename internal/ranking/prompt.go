package ranking

import (
	"fmt"
	"strings"

	"github.com/jonathan/lead-ranker/internal/prompts"
	"github.com/jonathan/lead-ranker/internal/types"
)

// ShortIDMap is the ephemeral per-batch bijection from a 1-indexed integer to
// a lead. It exists only for the duration of one LLM call: small sequential
// integers survive a round-trip through a model where long identifiers get
// mis-copied.
type ShortIDMap struct {
	leads map[int]types.Lead
}

// Lead resolves a short ID back to its lead.
func (m *ShortIDMap) Lead(shortID int) (types.Lead, bool) {
	lead, ok := m.leads[shortID]
	return lead, ok
}

// Len returns the batch size.
func (m *ShortIDMap) Len() int {
	return len(m.leads)
}

// Leads returns every lead in the batch in short-ID order.
func (m *ShortIDMap) Leads() []types.Lead {
	ordered := make([]types.Lead, 0, len(m.leads))
	for i := 1; i <= len(m.leads); i++ {
		ordered = append(ordered, m.leads[i])
	}
	return ordered
}

// Section-header markers the builder splices candidate data into. The
// surrounding persona rubric comes from the instruction document itself, so
// an optimized document keeps working as long as it preserves these headers.
const (
	companyContextHeader = "## COMPANY CONTEXT"
	candidatesHeader     = "## CANDIDATES"
)

// BuildBatchPrompt renders the ranking instruction for one (company, batch)
// pair: assigns short IDs, renders company context with the size-specific
// rubric, and splices both into the instruction document.
func BuildBatchPrompt(instructionDoc string, company types.Company, batch []types.Lead) (string, *ShortIDMap) {
	shortIDs := &ShortIDMap{leads: make(map[int]types.Lead, len(batch))}

	var manifest strings.Builder
	for i, lead := range batch {
		shortID := i + 1
		shortIDs.leads[shortID] = lead
		title := lead.Title
		if lead.NormalizedTitle != "" && lead.NormalizedTitle != strings.ToLower(lead.Title) {
			title = fmt.Sprintf("%s (normalized: %s)", lead.Title, lead.NormalizedTitle)
		}
		manifest.WriteString(fmt.Sprintf("%d. %s — %s\n", shortID, lead.FullName, title))
	}

	doc := spliceSection(instructionDoc, companyContextHeader, companyContext(company))
	doc = spliceSection(doc, candidatesHeader, strings.TrimSuffix(manifest.String(), "\n"))
	return doc, shortIDs
}

// companyContext renders the per-company section, including the size rubric.
func companyContext(company types.Company) string {
	sizeLabel := string(company.SizeBucket)
	if sizeLabel == "" {
		sizeLabel = "unknown"
	}
	if company.EmployeeRange != "" {
		sizeLabel = fmt.Sprintf("%s (%s employees)", sizeLabel, company.EmployeeRange)
	}

	industry := company.Industry
	if industry == "" {
		industry = "unknown"
	}

	contextSummary := ""
	if company.ContextSummary != "" {
		contextSummary = "About the company: " + company.ContextSummary + "\n"
	}

	return prompts.Format(prompts.MustGet("ranking.json", "company-context"), map[string]string{
		"CompanyName":    company.Name,
		"SizeLabel":      sizeLabel,
		"Industry":       industry,
		"ContextSummary": contextSummary,
		"SizeRubric":     formatRubric(RubricFor(company.SizeBucket)),
	})
}

// spliceSection replaces the body under a section header, up to the next
// "## " header or the end of the document. A document missing the header gets
// the section appended so the call still carries its data.
func spliceSection(doc, header, body string) string {
	start := strings.Index(doc, header)
	if start < 0 {
		return doc + "\n\n" + header + "\n" + body
	}

	bodyStart := start + len(header)
	rest := doc[bodyStart:]
	end := len(doc)
	if idx := strings.Index(rest, "\n## "); idx >= 0 {
		end = bodyStart + idx
	}

	return doc[:bodyStart] + "\n" + body + "\n" + doc[end:]
}

// DefaultInstructionDocument returns the built-in version-1 instruction
// document used before any optimization has run, and by the reset operation.
func DefaultInstructionDocument() string {
	return prompts.MustGet("ranking.json", "instruction-document")
}

// SystemMessage returns the fixed system message sent with every ranking call.
func SystemMessage() string {
	return prompts.MustGet("ranking.json", "system")
}
