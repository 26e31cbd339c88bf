package prefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/lead-ranker/internal/normalize"
	"github.com/jonathan/lead-ranker/internal/types"
)

func evaluate(rawTitle string, bucket types.SizeBucket) Decision {
	return Evaluate(rawTitle, normalize.Title(rawTitle), bucket)
}

func TestEvaluateHardExclusions(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		bucket types.SizeBucket
		code   string
	}{
		{"hr manager", "HR Manager", types.BucketSMB, CodeHR},
		{"hr at startup", "HR Manager", types.BucketStartup, CodeHR},
		{"recruiter", "Senior Technical Recruiter", types.BucketEnterprise, CodeHR},
		{"accountant", "Staff Accountant", types.BucketSMB, CodeFinance},
		{"controller", "Corporate Controller", types.BucketMidMarket, CodeFinance},
		{"general counsel", "General Counsel", types.BucketSMB, CodeLegal},
		{"compliance", "Compliance Officer", types.BucketEnterprise, CodeLegal},
		{"support", "Customer Support Specialist", types.BucketSMB, CodeSupport},
		{"board", "Board Member", types.BucketStartup, CodeBoard},
		{"investor", "Angel Investor", types.BucketStartup, CodeBoard},
		{"intern", "Marketing Intern", types.BucketSMB, CodeIntern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := evaluate(tt.title, tt.bucket)
			assert.True(t, decision.ShouldExclude)
			assert.Equal(t, tt.code, decision.Code)
			assert.Contains(t, decision.Reason, tt.title)
		})
	}
}

func TestEvaluateStartupCFOException(t *testing.T) {
	// A startup CFO is often the operational approver and must pass the gate.
	decision := evaluate("CFO", types.BucketStartup)
	assert.False(t, decision.ShouldExclude)

	// The same title at any other size is still a finance exclusion.
	decision = evaluate("CFO", types.BucketMidMarket)
	assert.True(t, decision.ShouldExclude)
	assert.Equal(t, CodeFinance, decision.Code)

	// A non-leadership finance title at a startup still excludes.
	decision = evaluate("Staff Accountant", types.BucketStartup)
	assert.True(t, decision.ShouldExclude)
	assert.Equal(t, CodeFinance, decision.Code)
}

func TestEvaluateSizeDependentRules(t *testing.T) {
	// CEO passes at small companies, excludes at larger ones.
	assert.False(t, evaluate("CEO", types.BucketStartup).ShouldExclude)
	assert.False(t, evaluate("CEO", types.BucketSMB).ShouldExclude)
	assert.True(t, evaluate("CEO", types.BucketMidMarket).ShouldExclude)

	decision := evaluate("CEO", types.BucketEnterprise)
	assert.True(t, decision.ShouldExclude)
	assert.Equal(t, CodeCEO, decision.Code)

	// GTM context overrides the executive exclusion.
	assert.False(t, evaluate("President of Sales", types.BucketEnterprise).ShouldExclude)

	// Founder excluded only at enterprise.
	assert.False(t, evaluate("Founder", types.BucketMidMarket).ShouldExclude)
	assert.True(t, evaluate("Founder", types.BucketEnterprise).ShouldExclude)

	// Unknown bucket never triggers size-dependent rules.
	assert.False(t, evaluate("CEO", types.BucketUnknown).ShouldExclude)
}

func TestEvaluatePassThrough(t *testing.T) {
	for _, title := range []string{
		"VP of Sales",
		"Head of Revenue Operations",
		"Account Executive",
		"Director of Marketing",
		"Chief Revenue Officer",
	} {
		decision := evaluate(title, types.BucketSMB)
		assert.False(t, decision.ShouldExclude, "expected %q to pass the gate", title)
		assert.Empty(t, decision.Code)
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	first := evaluate("HR Manager", types.BucketSMB)
	second := evaluate("HR Manager", types.BucketSMB)
	assert.Equal(t, first, second)
}
