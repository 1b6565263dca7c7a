package entity

import "time"

// CaseStatus is the coarse status of a recruitment case
type CaseStatus string

const (
	CaseStatusDraft                 CaseStatus = "draft"
	CaseStatusTORPending            CaseStatus = "tor_pending"
	CaseStatusSRFReview             CaseStatus = "srf_review"
	CaseStatusAdvertising           CaseStatus = "advertising"
	CaseStatusReceivingApplications CaseStatus = "receiving_applications"
	CaseStatusCommitteeFormation    CaseStatus = "committee_formation"
	CaseStatusLonglisting           CaseStatus = "longlisting"
	CaseStatusShortlisting          CaseStatus = "shortlisting"
	CaseStatusWrittenTest           CaseStatus = "written_test"
	CaseStatusInterviewing          CaseStatus = "interviewing"
	CaseStatusReportReview          CaseStatus = "report_review"
	CaseStatusOffer                 CaseStatus = "offer"
	CaseStatusSanctionCheck         CaseStatus = "sanction_check"
	CaseStatusBackgroundCheck       CaseStatus = "background_check"
	CaseStatusContracting           CaseStatus = "contracting"
	CaseStatusCompleted             CaseStatus = "completed"
	CaseStatusCancelled             CaseStatus = "cancelled"
)

// IsClosed reports whether the case accepts no further mutations
func (s CaseStatus) IsClosed() bool {
	return s == CaseStatusCompleted || s == CaseStatusCancelled
}

// Hiring approaches
const (
	HiringApproachCompetitive = "competitive"
	HiringApproachHeadhunting = "headhunting"
	HiringApproachInternal    = "internal"
)

// Contract types
const (
	ContractTypeFixedTerm  = "fixed_term"
	ContractTypeOpenEnded  = "open_ended"
	ContractTypeConsultant = "consultant"
)

// RecruitmentCase is one hiring process for one position
type RecruitmentCase struct {
	Base
	Code           string     `json:"code"`
	CurrentStep    int        `json:"current_step"`
	Status         CaseStatus `json:"status"`
	PositionTitle  string     `json:"position_title"`
	Department     string     `json:"department,omitempty"`
	HiringApproach string     `json:"hiring_approach"`
	ContractType   string     `json:"contract_type"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CancelReason   string     `json:"cancel_reason,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (c *RecruitmentCase) Kind() string { return "recruitment_case" }

func (c *RecruitmentCase) Indexes() []IndexEntry {
	return []IndexEntry{refIndex(c.Code)}
}
