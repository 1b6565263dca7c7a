package entity

import "time"

// Member roles
const (
	MemberRoleChair     = "chair"
	MemberRoleHR        = "hr"
	MemberRoleTechnical = "technical"
	MemberRoleObserver  = "observer"
)

// Committee evaluates candidates of one case
type Committee struct {
	Base
	CaseID   int64     `json:"case_id"`
	Name     string    `json:"name"`
	FormedAt time.Time `json:"formed_at"`
}

func (c *Committee) Kind() string { return "committee" }

func (c *Committee) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(c.CaseID), refIndex(formatID(c.CaseID))}
}

// Member sits on a committee
type Member struct {
	Base
	CommitteeID int64  `json:"committee_id"`
	CaseID      int64  `json:"case_id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	IsChair     bool   `json:"is_chair"`
}

func (m *Member) Kind() string { return "committee_member" }

func (m *Member) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(m.CaseID), parentIndex(m.CommitteeID)}
}

// ConflictOfInterestDeclaration is a member's COI statement
type ConflictOfInterestDeclaration struct {
	Base
	MemberID    int64     `json:"member_id"`
	CaseID      int64     `json:"case_id"`
	HasConflict bool      `json:"has_conflict"`
	Details     string    `json:"details,omitempty"`
	DeclaredAt  time.Time `json:"declared_at"`
}

func (d *ConflictOfInterestDeclaration) Kind() string { return "coi_declaration" }

func (d *ConflictOfInterestDeclaration) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(d.CaseID), refIndex(formatID(d.MemberID))}
}
