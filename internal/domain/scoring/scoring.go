// Package scoring holds the pure computations of the candidate funnel:
// shortlisting totals, written-test outcomes, interview scores and ranking.
//
// Derived outcomes are never stored. Callers recompute them from the
// persisted inputs on every read.
package scoring

import (
	"math"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

const (
	// MaxScore is the upper bound of every percentage-style score
	MaxScore = 100.0

	// weightTolerance absorbs float error when weights are entered as decimals
	weightTolerance = 1e-6

	// scoreTolerance absorbs float error in a weighted total, far below any
	// difference a score entered to two decimals can make
	scoreTolerance = 1e-9
)

// ShortlistWeights are the relative weights of the three shortlisting scores
type ShortlistWeights struct {
	Academic   float64
	Experience float64
	Other      float64
}

// DefaultShortlistWeights is 20/30/50
var DefaultShortlistWeights = ShortlistWeights{Academic: 0.20, Experience: 0.30, Other: 0.50}

// DefaultShortlistPassingScore is the default shortlisting pass mark
const DefaultShortlistPassingScore = 60.0

// Validate checks that every weight is in [0,1] and that they sum to 1
func (w ShortlistWeights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"academic_weight", w.Academic},
		{"experience_weight", w.Experience},
		{"other_weight", w.Other},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 1 || math.IsNaN(f.value) {
			return apperror.Validation(f.name, "must be between 0 and 1, got %v", f.value)
		}
	}
	if sum := w.Academic + w.Experience + w.Other; math.Abs(sum-1) > weightTolerance {
		return apperror.Validation("weights", "must sum to 1, got %.4f", sum)
	}
	return nil
}

// WeightsOf returns the weights carried by a shortlisting record
func WeightsOf(rec *entity.ShortlistingRecord) ShortlistWeights {
	return ShortlistWeights{Academic: rec.AcademicWeight, Experience: rec.ExperienceWeight, Other: rec.OtherWeight}
}

// ValidatePassingScore checks a percentage-style pass mark
func ValidatePassingScore(field string, v float64) error {
	if v < 0 || v > MaxScore || math.IsNaN(v) {
		return apperror.Validation(field, "must be between 0 and %v, got %v", MaxScore, v)
	}
	return nil
}

// Clamp limits v to [lo, hi]; NaN becomes lo
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round2 rounds to two decimals for display. Pass marks are never compared
// against a rounded value.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Passes reports whether an unrounded total reaches the pass mark
func Passes(total, passingScore float64) bool {
	return total >= passingScore-scoreTolerance
}

// ShortlistOutcome is the derived result of one shortlisting candidate
type ShortlistOutcome struct {
	TotalScore    float64 `json:"total_score"`
	IsShortlisted bool    `json:"is_shortlisted"`
}

// Shortlist computes the weighted total and pass flag of a candidate
func Shortlist(rec *entity.ShortlistingRecord, c *entity.ShortlistingCandidate) ShortlistOutcome {
	w := WeightsOf(rec)
	total := Clamp(c.AcademicScore, 0, MaxScore)*w.Academic +
		Clamp(c.ExperienceScore, 0, MaxScore)*w.Experience +
		Clamp(c.OtherScore, 0, MaxScore)*w.Other
	return ShortlistOutcome{
		TotalScore:    total,
		IsShortlisted: Passes(total, rec.PassingScore),
	}
}

// ValidateWrittenTest checks the marking scheme
func ValidateWrittenTest(totalMarks, passingMarks float64) error {
	if !(totalMarks > 0) {
		return apperror.Validation("total_marks", "must be positive, got %v", totalMarks)
	}
	if passingMarks < 0 || passingMarks > totalMarks || math.IsNaN(passingMarks) {
		return apperror.Validation("passing_marks", "must be between 0 and %v, got %v", totalMarks, passingMarks)
	}
	return nil
}

// TestOutcome is the derived result of one written-test candidate.
// Percentage is nil until marks are recorded.
type TestOutcome struct {
	Percentage *float64 `json:"percentage,omitempty"`
	IsPassed   bool     `json:"is_passed"`
}

// WrittenTest computes the pass flag of a candidate; absentees and
// unmarked candidates never pass
func WrittenTest(test *entity.WrittenTest, c *entity.WrittenTestCandidate) TestOutcome {
	if !c.Attended || c.MarksObtained == nil || test.TotalMarks <= 0 {
		return TestOutcome{}
	}

	marks := Clamp(*c.MarksObtained, 0, test.TotalMarks)
	pct := Round2(marks / test.TotalMarks * MaxScore)
	return TestOutcome{
		Percentage: &pct,
		IsPassed:   marks >= test.PassingMarks,
	}
}
