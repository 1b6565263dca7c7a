package entity

import (
	"strings"
	"time"
)

// Candidate is a person's identity, independent of any case
type Candidate struct {
	Base
	FullName   string `json:"full_name"`
	FatherName string `json:"father_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	NationalID string `json:"national_id,omitempty"`
}

func (c *Candidate) Kind() string { return "candidate" }

func (c *Candidate) Indexes() []IndexEntry {
	if c.Email == "" {
		return nil
	}
	return []IndexEntry{refIndex(strings.ToLower(c.Email))}
}

// ApplicationStatus tracks a candidate through the funnel
type ApplicationStatus string

const (
	ApplicationReceived    ApplicationStatus = "received"
	ApplicationLonglisted  ApplicationStatus = "longlisted"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationTested      ApplicationStatus = "tested"
	ApplicationInterviewed ApplicationStatus = "interviewed"
	ApplicationOffered     ApplicationStatus = "offered"
	ApplicationHired       ApplicationStatus = "hired"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

// IsDropped reports whether the candidate was rejected or withdrew
func (s ApplicationStatus) IsDropped() bool {
	return s == ApplicationRejected || s == ApplicationWithdrawn
}

// Application is a candidate's participation in one case
type Application struct {
	Base
	CaseID       int64             `json:"case_id"`
	CandidateID  int64             `json:"candidate_id"`
	Status       ApplicationStatus `json:"status"`
	ReceivedAt   time.Time         `json:"received_at"`
	StatusReason string            `json:"status_reason,omitempty"`
	ClosedAt     *time.Time        `json:"closed_at,omitempty"`
}

func (a *Application) Kind() string { return "application" }

func (a *Application) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(a.CaseID),
		{Name: "candidate_id", Value: formatID(a.CandidateID)},
		refIndex(compositeRef(a.CaseID, a.CandidateID)),
	}
}
