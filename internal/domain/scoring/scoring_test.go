package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

func defaultRecord() *entity.ShortlistingRecord {
	return &entity.ShortlistingRecord{
		AcademicWeight:   DefaultShortlistWeights.Academic,
		ExperienceWeight: DefaultShortlistWeights.Experience,
		OtherWeight:      DefaultShortlistWeights.Other,
		PassingScore:     DefaultShortlistPassingScore,
	}
}

func TestShortlistWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights ShortlistWeights
		wantErr bool
	}{
		{"defaults", DefaultShortlistWeights, false},
		{"thirds within tolerance", ShortlistWeights{0.333333, 0.333333, 0.333334}, false},
		{"sum too small", ShortlistWeights{0.2, 0.3, 0.4}, true},
		{"negative weight", ShortlistWeights{-0.5, 1, 0.5}, true},
		{"weight above one", ShortlistWeights{1.5, -0.25, -0.25}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShortlist(t *testing.T) {
	tests := []struct {
		name       string
		academic   float64
		experience float64
		other      float64
		wantTotal  float64
		wantPass   bool
	}{
		{"uniform 85", 85, 85, 85, 85, true},
		{"exactly at pass mark", 60, 60, 60, 60, true},
		{"just below pass mark", 59.99, 59.99, 59.99, 59.99, false},
		{"weighted mix", 100, 50, 40, 55, false},
		{"scores are clamped", 150, -20, 100, 70, true},
		{"total a hair under the mark is not rounded up", 60, 60, 59.991, 59.9955, false},
	}

	rec := defaultRecord()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Shortlist(rec, &entity.ShortlistingCandidate{
				AcademicScore:   tt.academic,
				ExperienceScore: tt.experience,
				OtherScore:      tt.other,
			})
			assert.InDelta(t, tt.wantTotal, out.TotalScore, 1e-9)
			assert.Equal(t, tt.wantPass, out.IsShortlisted)
			assert.Equal(t, Passes(out.TotalScore, rec.PassingScore), out.IsShortlisted)
		})
	}
}

func TestPasses(t *testing.T) {
	assert.True(t, Passes(60, 60))
	assert.True(t, Passes(0.2*60+0.3*60+0.5*60, 60), "float error in an exact total")
	assert.False(t, Passes(59.9955, 60))
	assert.False(t, Passes(59.999, 60))
}

func TestShortlist_RecomputedFromInputs(t *testing.T) {
	rec := defaultRecord()
	c := &entity.ShortlistingCandidate{AcademicScore: 90, ExperienceScore: 90, OtherScore: 90}
	require.True(t, Shortlist(rec, c).IsShortlisted)

	c.OtherScore = 10
	assert.False(t, Shortlist(rec, c).IsShortlisted)

	rec.PassingScore = 40
	assert.True(t, Shortlist(rec, c).IsShortlisted)
}

func TestValidateWrittenTest(t *testing.T) {
	assert.NoError(t, ValidateWrittenTest(100, 50))
	assert.NoError(t, ValidateWrittenTest(100, 0))
	assert.NoError(t, ValidateWrittenTest(100, 100))
	assert.ErrorIs(t, ValidateWrittenTest(0, 0), apperror.ErrValidation)
	assert.ErrorIs(t, ValidateWrittenTest(100, 101), apperror.ErrValidation)
	assert.ErrorIs(t, ValidateWrittenTest(100, -1), apperror.ErrValidation)
}

func TestWrittenTest(t *testing.T) {
	test := &entity.WrittenTest{TotalMarks: 100, PassingMarks: 50}
	marks := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		cand     entity.WrittenTestCandidate
		wantPass bool
		wantPct  *float64
	}{
		{"absent", entity.WrittenTestCandidate{Attended: false}, false, nil},
		{"attended unmarked", entity.WrittenTestCandidate{Attended: true}, false, nil},
		{"at pass mark", entity.WrittenTestCandidate{Attended: true, MarksObtained: marks(50)}, true, marks(50)},
		{"below pass mark", entity.WrittenTestCandidate{Attended: true, MarksObtained: marks(49.5)}, false, marks(49.5)},
		{"clamped above total", entity.WrittenTestCandidate{Attended: true, MarksObtained: marks(130)}, true, marks(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := WrittenTest(test, &tt.cand)
			assert.Equal(t, tt.wantPass, out.IsPassed)
			if tt.wantPct == nil {
				assert.Nil(t, out.Percentage)
			} else {
				require.NotNil(t, out.Percentage)
				assert.InDelta(t, *tt.wantPct, *out.Percentage, 1e-9)
			}
		})
	}
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 10))
	assert.Equal(t, 10.0, Clamp(11, 0, 10))
	assert.Equal(t, 5.0, Clamp(5, 0, 10))
	assert.Equal(t, 66.67, Round2(200.0/3))
}
