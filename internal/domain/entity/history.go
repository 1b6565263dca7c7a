package entity

import "time"

// HistoryEntry is one line of a case's audit trail
type HistoryEntry struct {
	Base
	CaseID         int64  `json:"case_id"`
	Entity         string `json:"entity"`
	EntityID       int64  `json:"entity_id"`
	Action         string `json:"action"`
	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status,omitempty"`
	Actor          string `json:"actor"`
	Note           string `json:"note,omitempty"`
}

func (h *HistoryEntry) Kind() string { return "history" }

func (h *HistoryEntry) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(h.CaseID)}
}

// EditOverride is an elevated, audited grant to modify a stage the case has already passed
type EditOverride struct {
	Base
	CaseID    int64      `json:"case_id"`
	Stage     int        `json:"stage"`
	Token     string     `json:"token"`
	Actor     string     `json:"actor"`
	Reason    string     `json:"reason"`
	RevokedBy string     `json:"revoked_by,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func (o *EditOverride) Kind() string { return "edit_override" }

func (o *EditOverride) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(o.CaseID), refIndex(o.Token)}
}

// IsActive reports whether the grant has not been revoked
func (o *EditOverride) IsActive() bool {
	return o.RevokedAt == nil
}
