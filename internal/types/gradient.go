//nolint:revive // types is a standard Go package name pattern
package types

// GradientConfidence labels how much signal a gradient critique carries.
type GradientConfidence string

// Gradient confidence values.
const (
	ConfidenceHigh   GradientConfidence = "high"
	ConfidenceMedium GradientConfidence = "medium"
	ConfidenceLow    GradientConfidence = "low"
)

// Gradient is a structured natural-language critique of one evaluation's
// prediction errors. Produced fresh each optimization iteration; never
// mutated, only superseded by the next iteration's critique.
type Gradient struct {
	Summary               string             `json:"summary"`
	FalsePositiveAnalysis string             `json:"false_positive_analysis"`
	FalseNegativeAnalysis string             `json:"false_negative_analysis"`
	RankingAnalysis       string             `json:"ranking_analysis"`
	SuggestedImprovements []string           `json:"suggested_improvements"`
	Confidence            GradientConfidence `json:"confidence"`
}

// EditType classifies a single surgical change the prompt editor made.
type EditType string

// Edit type values.
const (
	EditAdd     EditType = "add"
	EditRemove  EditType = "remove"
	EditReplace EditType = "replace"
)

// PromptEdit is one discrete change applied to the instruction document.
type PromptEdit struct {
	Type      EditType `json:"type"`
	Section   string   `json:"section"`
	Before    string   `json:"before,omitempty"`
	After     string   `json:"after,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
}
