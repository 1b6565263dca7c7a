package entity

import (
	"time"

	"github.com/garyjia/recruitment-engine/internal/domain/workflow"
)

// TOR is the Terms of Reference that defines the position
type TOR struct {
	Base
	CaseID           int64          `json:"case_id"`
	Status           workflow.State `json:"status"`
	PositionTitle    string         `json:"position_title"`
	Purpose          string         `json:"purpose"`
	Responsibilities string         `json:"responsibilities"`
	Qualifications   string         `json:"qualifications"`
	Grade            string         `json:"grade,omitempty"`
	DutyStation      string         `json:"duty_station,omitempty"`
	SubmittedBy      string         `json:"submitted_by,omitempty"`
	ApprovedBy       string         `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`
}

func (t *TOR) Kind() string { return "tor" }

func (t *TOR) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(t.CaseID)}
}

// SRF is the Staff Requisition Form; approval needs both HR and budget verification
type SRF struct {
	Base
	CaseID           int64          `json:"case_id"`
	Status           workflow.State `json:"status"`
	Positions        int            `json:"positions"`
	BudgetLine       string         `json:"budget_line"`
	MonthlySalary    float64        `json:"monthly_salary"`
	DurationMonths   int            `json:"duration_months"`
	Justification    string         `json:"justification"`
	HRVerified       bool           `json:"hr_verified"`
	HRVerifiedBy     string         `json:"hr_verified_by,omitempty"`
	BudgetVerified   bool           `json:"budget_verified"`
	BudgetVerifiedBy string         `json:"budget_verified_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	LastRejection    string         `json:"last_rejection,omitempty"`
}

func (s *SRF) Kind() string { return "srf" }

func (s *SRF) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(s.CaseID)}
}

// SelectionReport summarises the interview ranking for approval
type SelectionReport struct {
	Base
	CaseID          int64          `json:"case_id"`
	InterviewID     int64          `json:"interview_id"`
	ReportNumber    string         `json:"report_number"`
	Status          workflow.State `json:"status"`
	Summary         string         `json:"summary"`
	SubmittedBy     string         `json:"submitted_by,omitempty"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}

func (r *SelectionReport) Kind() string { return "selection_report" }

func (r *SelectionReport) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(r.CaseID), refIndex(r.ReportNumber)}
}
