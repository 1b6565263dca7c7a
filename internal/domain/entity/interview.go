package entity

import "time"

// Recommendation is an evaluator's verdict on a candidate
type Recommendation string

const (
	RecommendStrongly Recommendation = "strongly_recommend"
	Recommend         Recommendation = "recommend"
	RecommendNeutral  Recommendation = "neutral"
	RecommendAgainst  Recommendation = "not_recommend"
)

// IsValid reports whether r is a known recommendation
func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendStrongly, Recommend, RecommendNeutral, RecommendAgainst:
		return true
	}
	return false
}

// IsPositive reports whether r supports hiring
func (r Recommendation) IsPositive() bool {
	return r == RecommendStrongly || r == Recommend
}

// ResultRecommendation is the aggregated outcome attached to a ranked result
type ResultRecommendation string

const (
	ResultHire           ResultRecommendation = "hire"
	ResultReserve        ResultRecommendation = "reserve"
	ResultNotRecommended ResultRecommendation = "not_recommended"
)

// Interview is the interview round of a case
type Interview struct {
	Base
	CaseID          int64     `json:"case_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Venue           string    `json:"venue,omitempty"`
	PriorWeight     float64   `json:"prior_weight"`
	InterviewWeight float64   `json:"interview_weight"`
	// RankedAt is cleared whenever an evaluation changes, marking the ranking stale
	RankedAt *time.Time `json:"ranked_at,omitempty"`
}

func (i *Interview) Kind() string { return "interview" }

func (i *Interview) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(i.CaseID), refIndex(formatID(i.CaseID))}
}

// InterviewCandidate is an application invited to the interview
type InterviewCandidate struct {
	Base
	InterviewID   int64 `json:"interview_id"`
	CaseID        int64 `json:"case_id"`
	ApplicationID int64 `json:"application_id"`
	Attended      bool  `json:"attended"`
}

func (c *InterviewCandidate) Kind() string { return "interview_candidate" }

func (c *InterviewCandidate) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(c.CaseID),
		parentIndex(c.InterviewID),
		applicationIndex(c.ApplicationID),
		refIndex(compositeRef(c.InterviewID, c.ApplicationID)),
	}
}

// DimensionScores are the five 1..5 interview dimensions
type DimensionScores struct {
	TechnicalKnowledge  int `json:"technical_knowledge"`
	Communication       int `json:"communication"`
	ProblemSolving      int `json:"problem_solving"`
	ExperienceRelevance int `json:"experience_relevance"`
	CulturalFit         int `json:"cultural_fit"`
}

// Values returns the scores in a fixed order
func (d DimensionScores) Values() [5]int {
	return [5]int{d.TechnicalKnowledge, d.Communication, d.ProblemSolving, d.ExperienceRelevance, d.CulturalFit}
}

// Evaluation is one evaluator's scoring of one interviewed candidate
type Evaluation struct {
	Base
	InterviewID    int64           `json:"interview_id"`
	CaseID         int64           `json:"case_id"`
	ApplicationID  int64           `json:"application_id"`
	EvaluatorID    int64           `json:"evaluator_id"`
	Scores         DimensionScores `json:"scores"`
	Recommendation Recommendation  `json:"recommendation"`
	Comments       string          `json:"comments,omitempty"`
}

func (e *Evaluation) Kind() string { return "evaluation" }

func (e *Evaluation) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(e.CaseID),
		parentIndex(e.InterviewID),
		applicationIndex(e.ApplicationID),
		refIndex(compositeRef(e.InterviewID, e.ApplicationID, e.EvaluatorID)),
	}
}

// InterviewResult is the persisted ranking entry of one application
type InterviewResult struct {
	Base
	InterviewID    int64                `json:"interview_id"`
	CaseID         int64                `json:"case_id"`
	ApplicationID  int64                `json:"application_id"`
	PriorScore     float64              `json:"prior_score"`
	InterviewScore float64              `json:"interview_score"`
	FinalScore     float64              `json:"final_score"`
	Rank           int                  `json:"rank"`
	Recommendation ResultRecommendation `json:"recommendation"`
}

func (r *InterviewResult) Kind() string { return "interview_result" }

func (r *InterviewResult) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(r.CaseID),
		parentIndex(r.InterviewID),
		applicationIndex(r.ApplicationID),
		refIndex(compositeRef(r.InterviewID, r.ApplicationID)),
	}
}
