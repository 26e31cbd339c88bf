// Package metrics scores a set of ranking predictions against ground-truth
// labels: precision, recall, F1 on the relevance judgment, and NDCG@3 on the
// within-company ordering.
package metrics

import (
	"math"
	"sort"
	"strings"

	"github.com/jonathan/lead-ranker/internal/types"
)

// NDCGCutoff is the ordering depth that matters for outreach: only the top
// few contacts per company get a first touch.
const NDCGCutoff = 3

// Prediction is the engine's judgment for one labeled lead, keyed by the
// lead's stable identity hash.
type Prediction struct {
	Relevant bool
	Rank     *int
	Score    float64
}

// Mismatch is a relevant lead whose predicted rank strayed from its label by
// more than the tolerance. Used as optimization feedback, not as an error.
type Mismatch struct {
	Lead          types.EvalLead
	PredictedRank int
	ExpectedRank  int
}

// MismatchTolerance is the allowed |predicted − expected| rank distance
// before a correctly-included lead counts as a ranking mismatch.
const MismatchTolerance = 2

// Report is the full evaluation of one instruction-document version.
type Report struct {
	Metrics types.Metrics

	TruePositives  int
	FalsePositives []types.EvalLead
	FalseNegatives []types.EvalLead
	Mismatches     []Mismatch

	CompaniesScored int
}

// Evaluate scores predictions against labels. A labeled lead absent from the
// prediction map counts as predicted-irrelevant; extra predictions with no
// label are ignored.
func Evaluate(labeled []types.EvalLead, predictions map[string]Prediction) *Report {
	report := &Report{}

	for _, lead := range labeled {
		pred, ok := predictions[lead.Key()]
		predictedRelevant := ok && pred.Relevant

		switch {
		case predictedRelevant && lead.Relevant():
			report.TruePositives++
			if pred.Rank != nil {
				distance := *pred.Rank - *lead.GroundTruthRank
				if distance < 0 {
					distance = -distance
				}
				if distance > MismatchTolerance {
					report.Mismatches = append(report.Mismatches, Mismatch{
						Lead:          lead,
						PredictedRank: *pred.Rank,
						ExpectedRank:  *lead.GroundTruthRank,
					})
				}
			}
		case predictedRelevant && !lead.Relevant():
			report.FalsePositives = append(report.FalsePositives, lead)
		case !predictedRelevant && lead.Relevant():
			report.FalseNegatives = append(report.FalseNegatives, lead)
		}
	}

	tp := float64(report.TruePositives)
	fp := float64(len(report.FalsePositives))
	fn := float64(len(report.FalseNegatives))

	precision := 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	ndcg3 := averageNDCG(labeled, predictions, &report.CompaniesScored)

	report.Metrics = types.Metrics{
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		NDCG3:     ndcg3,
		Composite: types.ComputeComposite(f1, ndcg3),
	}
	return report
}

// averageNDCG computes NDCG@3 per company and averages across companies that
// have at least one ground-truth-relevant lead. No scorable companies yields
// zero, which is the conservative answer for an optimizer comparing versions.
func averageNDCG(labeled []types.EvalLead, predictions map[string]Prediction, scored *int) float64 {
	byCompany := make(map[string][]types.EvalLead)
	for _, lead := range labeled {
		key := strings.ToLower(lead.Company)
		byCompany[key] = append(byCompany[key], lead)
	}

	total := 0.0
	companies := 0
	for _, leads := range byCompany {
		ndcg, ok := companyNDCG(leads, predictions)
		if !ok {
			continue
		}
		total += ndcg
		companies++
	}

	*scored = companies
	if companies == 0 {
		return 0
	}
	return total / float64(companies)
}

// companyNDCG scores one company's predicted ordering. Relevance gain for a
// lead with ground-truth rank r is maxRank−r+1, so the top-labeled lead
// carries the most weight; irrelevant leads contribute zero gain.
func companyNDCG(leads []types.EvalLead, predictions map[string]Prediction) (float64, bool) {
	maxRank := 0
	for _, lead := range leads {
		if lead.Relevant() && *lead.GroundTruthRank > maxRank {
			maxRank = *lead.GroundTruthRank
		}
	}
	if maxRank == 0 {
		return 0, false
	}

	gain := func(lead types.EvalLead) float64 {
		if !lead.Relevant() {
			return 0
		}
		return float64(maxRank - *lead.GroundTruthRank + 1)
	}

	// Predicted order: relevant predictions sorted by predicted rank.
	type placed struct {
		lead types.EvalLead
		rank int
	}
	var predicted []placed
	for _, lead := range leads {
		pred, ok := predictions[lead.Key()]
		if !ok || !pred.Relevant || pred.Rank == nil {
			continue
		}
		predicted = append(predicted, placed{lead: lead, rank: *pred.Rank})
	}
	sort.SliceStable(predicted, func(i, j int) bool {
		return predicted[i].rank < predicted[j].rank
	})

	dcg := 0.0
	for i, p := range predicted {
		if i >= NDCGCutoff {
			break
		}
		dcg += gain(p.lead) / math.Log2(float64(i)+2)
	}

	// Ideal ordering: gains descending.
	gains := make([]float64, 0, len(leads))
	for _, lead := range leads {
		if g := gain(lead); g > 0 {
			gains = append(gains, g)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(gains)))

	idcg := 0.0
	for i, g := range gains {
		if i >= NDCGCutoff {
			break
		}
		idcg += g / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0, false
	}
	return dcg / idcg, true
}
