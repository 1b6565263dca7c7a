package entity

import (
	"time"

	"github.com/garyjia/recruitment-engine/internal/domain/workflow"
)

// Offer is the employment offer made to the selected candidate
type Offer struct {
	Base
	CaseID        int64          `json:"case_id"`
	ApplicationID int64          `json:"application_id"`
	OfferNumber   string         `json:"offer_number"`
	Status        workflow.State `json:"status"`
	Salary        float64        `json:"salary"`
	Currency      string         `json:"currency"`
	StartDate     *time.Time     `json:"start_date,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	RespondedAt   *time.Time     `json:"responded_at,omitempty"`
	DeclineReason string         `json:"decline_reason,omitempty"`
}

func (o *Offer) Kind() string { return "offer" }

func (o *Offer) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(o.CaseID), applicationIndex(o.ApplicationID), refIndex(o.OfferNumber)}
}

// IsLive reports whether the offer still blocks a new one
func (o *Offer) IsLive() bool {
	return o.Status == workflow.StateDraft || o.Status == workflow.StateSent || o.Status == workflow.StateAccepted
}

// SanctionCheck screens the selected candidate against restricted lists
type SanctionCheck struct {
	Base
	CaseID         int64          `json:"case_id"`
	ApplicationID  int64          `json:"application_id"`
	Status         workflow.State `json:"status"`
	FullName       string         `json:"full_name"`
	FatherName     string         `json:"father_name"`
	Attempts       int            `json:"attempts"`
	CheckedAt      *time.Time     `json:"checked_at,omitempty"`
	MatchDetails   string         `json:"match_details,omitempty"`
	OverriddenBy   string         `json:"overridden_by,omitempty"`
	OverrideReason string         `json:"override_reason,omitempty"`
}

func (s *SanctionCheck) Kind() string { return "sanction_check" }

func (s *SanctionCheck) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(s.CaseID), refIndex(formatID(s.CaseID))}
}

// TrackStatus is the state of one background-check track
type TrackStatus string

const (
	TrackPending  TrackStatus = "pending"
	TrackReceived TrackStatus = "received"
	TrackVerified TrackStatus = "verified"
	TrackFailed   TrackStatus = "failed"
	TrackRejected TrackStatus = "rejected"
	TrackCleared  TrackStatus = "cleared"
	TrackFlagged  TrackStatus = "flagged"
)

// Background check tracks
const (
	TrackReferences      = "references"
	TrackGuaranteeLetter = "guarantee_letter"
	TrackHomeAddress     = "home_address"
	TrackCriminalRecord  = "criminal_record"
)

// BackgroundCheckStatus is the aggregate state of the background check
type BackgroundCheckStatus string

const (
	BackgroundInProgress BackgroundCheckStatus = "in_progress"
	BackgroundCompleted  BackgroundCheckStatus = "completed"
)

// BackgroundCheck aggregates the four independent verification tracks.
// References live in their own records.
type BackgroundCheck struct {
	Base
	CaseID          int64                 `json:"case_id"`
	ApplicationID   int64                 `json:"application_id"`
	Status          BackgroundCheckStatus `json:"status"`
	GuaranteeLetter TrackStatus           `json:"guarantee_letter"`
	HomeAddress     TrackStatus           `json:"home_address"`
	CriminalRecord  TrackStatus           `json:"criminal_record"`
	Notes           string                `json:"notes,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
}

func (b *BackgroundCheck) Kind() string { return "background_check" }

func (b *BackgroundCheck) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(b.CaseID), refIndex(formatID(b.CaseID))}
}

// Reference is one referee contacted during the background check
type Reference struct {
	Base
	CheckID      int64       `json:"check_id"`
	CaseID       int64       `json:"case_id"`
	Name         string      `json:"name"`
	Relationship string      `json:"relationship,omitempty"`
	Contact      string      `json:"contact"`
	Status       TrackStatus `json:"status"`
	Notes        string      `json:"notes,omitempty"`
}

func (r *Reference) Kind() string { return "reference" }

func (r *Reference) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(r.CaseID), parentIndex(r.CheckID)}
}

// Contract is the employment contract of the hired candidate
type Contract struct {
	Base
	CaseID         int64          `json:"case_id"`
	ApplicationID  int64          `json:"application_id"`
	ContractNumber string         `json:"contract_number"`
	Status         workflow.State `json:"status"`
	ContractType   string         `json:"contract_type"`
	Salary         float64        `json:"salary"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	SignedAt       *time.Time     `json:"signed_at,omitempty"`
	ActivatedAt    *time.Time     `json:"activated_at,omitempty"`
}

func (c *Contract) Kind() string { return "contract" }

func (c *Contract) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(c.CaseID), refIndex(c.ContractNumber)}
}

// ChecklistItem is one document of the employee file checklist
type ChecklistItem struct {
	Base
	CaseID    int64      `json:"case_id"`
	Name      string     `json:"name"`
	Required  bool       `json:"required"`
	Checked   bool       `json:"checked"`
	CheckedBy string     `json:"checked_by,omitempty"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
}

func (i *ChecklistItem) Kind() string { return "checklist_item" }

func (i *ChecklistItem) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(i.CaseID), refIndex(formatID(i.CaseID) + ":" + i.Name)}
}
