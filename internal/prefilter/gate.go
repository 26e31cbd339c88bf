// Package prefilter implements the deterministic rule gate that excludes
// structurally out-of-persona titles before any LLM call is spent on them.
package prefilter

import (
	"fmt"
	"regexp"

	"github.com/jonathan/lead-ranker/internal/types"
)

// Exclusion codes reported on gated-out leads.
const (
	CodeHR      = "HR"
	CodeFinance = "FINANCE"
	CodeLegal   = "LEGAL"
	CodeSupport = "SUPPORT"
	CodeBoard   = "BOARD"
	CodeIntern  = "INTERN"
	CodeCEO     = "CEO_LARGE_COMPANY"
	CodeFounder = "FOUNDER_ENTERPRISE"
)

// Decision is the gate's verdict for one title.
type Decision struct {
	ShouldExclude bool
	Reason        string
	Code          string
}

type hardRule struct {
	code    string
	label   string
	pattern *regexp.Regexp
}

// hardRules are evaluated in order against the normalized title. A match
// excludes regardless of company size, except for the startup finance
// exception below.
var hardRules = []hardRule{
	{CodeHR, "human resources", regexp.MustCompile(`\b(hr|human resources|people operations|people ops|talent acquisition|recruiter|recruiting|recruitment)\b`)},
	{CodeFinance, "finance", regexp.MustCompile(`\b(finance|financial|accounting|accountant|controller|treasurer|payroll|bookkeeper|bookkeeping)\b`)},
	{CodeLegal, "legal", regexp.MustCompile(`\b(legal|general counsel|counsel|attorney|paralegal|compliance)\b`)},
	{CodeSupport, "customer support", regexp.MustCompile(`\b(customer support|customer service|support specialist|support representative|support engineer|help desk|helpdesk)\b`)},
	{CodeBoard, "board or investor", regexp.MustCompile(`\b(board member|board of directors|board observer|investor|venture partner|advisor|advisory)\b`)},
	{CodeIntern, "intern or student", regexp.MustCompile(`\b(intern|internship|student|trainee|apprentice)\b`)},
}

// financeLeadershipRe overrides a finance exclusion at startups: a startup CFO
// is routinely the operational approver for purchases.
var financeLeadershipRe = regexp.MustCompile(`\b(chief financial officer|vice president of finance|vice president finance|head of finance|finance director)\b`)

// gtmSignalRe overrides size-dependent executive exclusions when the title
// carries a sales or go-to-market context ("President of Sales").
var gtmSignalRe = regexp.MustCompile(`\b(sales|revenue|go to market|growth|commercial|demand generation)\b`)

var (
	ceoPresidentRe = regexp.MustCompile(`\b(chief executive officer|ceo|president)\b`)
	founderRe      = regexp.MustCompile(`\b(founder|founding)\b`)
)

// Evaluate runs the gate against one title. Pure and deterministic: the same
// inputs always produce the same decision.
func Evaluate(rawTitle, normalizedTitle string, bucket types.SizeBucket) Decision {
	for _, rule := range hardRules {
		if !rule.pattern.MatchString(normalizedTitle) {
			continue
		}
		if rule.code == CodeFinance && bucket == types.BucketStartup && financeLeadershipRe.MatchString(normalizedTitle) {
			continue
		}
		return Decision{
			ShouldExclude: true,
			Reason:        fmt.Sprintf("title %q matched %s exclusion rule", rawTitle, rule.label),
			Code:          rule.code,
		}
	}

	// Size-dependent rules: top executives stop being hands-on buyers as the
	// company grows, unless the title itself is a GTM role.
	if (bucket == types.BucketMidMarket || bucket == types.BucketEnterprise) &&
		ceoPresidentRe.MatchString(normalizedTitle) && !gtmSignalRe.MatchString(normalizedTitle) {
		return Decision{
			ShouldExclude: true,
			Reason:        fmt.Sprintf("title %q is a top executive at a %s company", rawTitle, bucket),
			Code:          CodeCEO,
		}
	}
	if bucket == types.BucketEnterprise &&
		founderRe.MatchString(normalizedTitle) && !gtmSignalRe.MatchString(normalizedTitle) {
		return Decision{
			ShouldExclude: true,
			Reason:        fmt.Sprintf("title %q is a founder at an enterprise company", rawTitle),
			Code:          CodeFounder,
		}
	}

	return Decision{}
}
