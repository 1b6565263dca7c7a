package scoring

import (
	"sort"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

const (
	MinDimensionScore = 1
	MaxDimensionScore = 5

	dimensionCount = 5
)

// DefaultPriorWeight and DefaultInterviewWeight blend the final score 50/50
const (
	DefaultPriorWeight     = 0.5
	DefaultInterviewWeight = 0.5
)

// ValidateDimensions checks that every dimension is within 1..5
func ValidateDimensions(d entity.DimensionScores) error {
	names := [dimensionCount]string{"technical_knowledge", "communication", "problem_solving", "experience_relevance", "cultural_fit"}
	for i, v := range d.Values() {
		if v < MinDimensionScore || v > MaxDimensionScore {
			return apperror.Validation(names[i], "must be between %d and %d, got %d", MinDimensionScore, MaxDimensionScore, v)
		}
	}
	return nil
}

// EvaluationPercentage converts one evaluator's five scores to 0..100
func EvaluationPercentage(d entity.DimensionScores) float64 {
	sum := 0
	for _, v := range d.Values() {
		sum += v
	}
	return float64(sum) / float64(dimensionCount*MaxDimensionScore) * MaxScore
}

// InterviewScore averages the evaluators' percentages. ok is false without evaluations.
func InterviewScore(evals []*entity.Evaluation) (score float64, ok bool) {
	if len(evals) == 0 {
		return 0, false
	}
	total := 0.0
	for _, e := range evals {
		total += EvaluationPercentage(e.Scores)
	}
	return Round2(total / float64(len(evals))), true
}

// MajorityPositive reports whether more than half of the evaluators recommend hiring
func MajorityPositive(evals []*entity.Evaluation) bool {
	positive := 0
	for _, e := range evals {
		if e.Recommendation.IsPositive() {
			positive++
		}
	}
	return positive*2 > len(evals)
}

// ValidateBlend checks the prior/interview weights
func ValidateBlend(priorWeight, interviewWeight float64) error {
	if priorWeight < 0 || interviewWeight < 0 {
		return apperror.Validation("weights", "must not be negative")
	}
	if d := priorWeight + interviewWeight - 1; d > weightTolerance || d < -weightTolerance {
		return apperror.Validation("weights", "prior and interview weights must sum to 1, got %.4f", priorWeight+interviewWeight)
	}
	return nil
}

// FinalScore blends the prior-stage score with the interview score
func FinalScore(prior, interview, priorWeight, interviewWeight float64) float64 {
	return Round2(Clamp(prior, 0, MaxScore)*priorWeight + Clamp(interview, 0, MaxScore)*interviewWeight)
}

// PriorScore is the written-test percentage, falling back to the shortlisting
// total when the candidate has no marked test
func PriorScore(testPercentage, shortlistTotal *float64) float64 {
	switch {
	case testPercentage != nil:
		return *testPercentage
	case shortlistTotal != nil:
		return *shortlistTotal
	}
	return 0
}

// Standing is the unranked input of one application
type Standing struct {
	ApplicationID  int64
	PriorScore     float64
	InterviewScore float64
	FinalScore     float64
	// Positive is true when the majority of evaluators recommend hiring
	Positive bool
}

// Ranked is a standing with its rank and aggregated recommendation
type Ranked struct {
	Standing
	Rank           int
	Recommendation entity.ResultRecommendation
}

// Rank orders standings by final score descending and assigns ranks 1..N.
// Ties keep ascending application ID order, so the result depends only on
// the inputs and repeated calls agree. Only rank 1 can receive hire; other
// positively evaluated candidates are kept in reserve.
func Rank(standings []Standing) []Ranked {
	sorted := append([]Standing(nil), standings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ApplicationID < sorted[j].ApplicationID })
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FinalScore > sorted[j].FinalScore })

	ranked := make([]Ranked, len(sorted))
	for i, s := range sorted {
		rec := entity.ResultNotRecommended
		switch {
		case s.Positive && i == 0:
			rec = entity.ResultHire
		case s.Positive:
			rec = entity.ResultReserve
		}
		ranked[i] = Ranked{Standing: s, Rank: i + 1, Recommendation: rec}
	}
	return ranked
}
