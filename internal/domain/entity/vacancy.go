package entity

import "time"

// VacancyStatus is the publication state of an announcement
type VacancyStatus string

const (
	VacancyStatusDraft     VacancyStatus = "draft"
	VacancyStatusPublished VacancyStatus = "published"
)

// Vacancy is one announcement of the position on one channel
type Vacancy struct {
	Base
	CaseID      int64         `json:"case_id"`
	Channel     string        `json:"channel"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      VacancyStatus `json:"status"`
	ClosingDate *time.Time    `json:"closing_date,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
}

func (v *Vacancy) Kind() string { return "vacancy" }

func (v *Vacancy) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(v.CaseID)}
}
