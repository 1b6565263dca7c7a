// Package stage defines the fifteen steps of a recruitment case and the pure
// gating rules that decide whether a case may leave a step.
package stage

import (
	"fmt"

	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

// Stage is a 1-based step of the recruitment pipeline
type Stage int

const (
	TOR Stage = iota + 1
	SRFHRReview
	SRFFinanceReview
	VacancyAnnouncement
	Applications
	Committee
	Longlisting
	Shortlisting
	WrittenTest
	Interview
	SelectionReport
	Offer
	SanctionCheck
	BackgroundCheck
	Contract
)

const (
	First = TOR
	Last  = Contract
)

type info struct {
	name   string
	status entity.CaseStatus
}

var stages = map[Stage]info{
	TOR:                 {"tor", entity.CaseStatusTORPending},
	SRFHRReview:         {"srf_hr_review", entity.CaseStatusSRFReview},
	SRFFinanceReview:    {"srf_finance_review", entity.CaseStatusSRFReview},
	VacancyAnnouncement: {"vacancy_announcement", entity.CaseStatusAdvertising},
	Applications:        {"applications", entity.CaseStatusReceivingApplications},
	Committee:           {"committee", entity.CaseStatusCommitteeFormation},
	Longlisting:         {"longlisting", entity.CaseStatusLonglisting},
	Shortlisting:        {"shortlisting", entity.CaseStatusShortlisting},
	WrittenTest:         {"written_test", entity.CaseStatusWrittenTest},
	Interview:           {"interview", entity.CaseStatusInterviewing},
	SelectionReport:     {"selection_report", entity.CaseStatusReportReview},
	Offer:               {"offer", entity.CaseStatusOffer},
	SanctionCheck:       {"sanction_check", entity.CaseStatusSanctionCheck},
	BackgroundCheck:     {"background_check", entity.CaseStatusBackgroundCheck},
	Contract:            {"contract", entity.CaseStatusContracting},
}

// IsValid reports whether s is within 1..15
func (s Stage) IsValid() bool {
	return s >= First && s <= Last
}

// Name returns the machine name of the stage
func (s Stage) Name() string {
	if i, ok := stages[s]; ok {
		return i.name
	}
	return fmt.Sprintf("stage_%d", int(s))
}

func (s Stage) String() string {
	return s.Name()
}

// Status is the case status while the case sits at s. The TOR stage reports
// draft until the TOR is submitted; callers handle that refinement.
func (s Stage) Status() entity.CaseStatus {
	return stages[s].status
}

// Next returns the following stage, capped at Last
func (s Stage) Next() Stage {
	if s >= Last {
		return Last
	}
	return s + 1
}

// Parse converts a step number, rejecting values outside 1..15
func Parse(step int) (Stage, error) {
	s := Stage(step)
	if !s.IsValid() {
		return 0, fmt.Errorf("stage %d out of range %d..%d", step, First, Last)
	}
	return s, nil
}

// All returns the stages in pipeline order
func All() []Stage {
	out := make([]Stage, 0, Last)
	for s := First; s <= Last; s++ {
		out = append(out, s)
	}
	return out
}
