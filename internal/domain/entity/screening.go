package entity

import "time"

// LonglistingRecord is the committee's criteria-based screening session
type LonglistingRecord struct {
	Base
	CaseID      int64     `json:"case_id"`
	ConductedOn time.Time `json:"conducted_on"`
	Notes       string    `json:"notes,omitempty"`
}

func (r *LonglistingRecord) Kind() string { return "longlisting_record" }

func (r *LonglistingRecord) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(r.CaseID), refIndex(formatID(r.CaseID))}
}

// LonglistingCriteria are the four boolean screening criteria
type LonglistingCriteria struct {
	MeetsEducation    bool `json:"meets_education"`
	MeetsExperience   bool `json:"meets_experience"`
	MeetsLanguage     bool `json:"meets_language"`
	DocumentsComplete bool `json:"documents_complete"`
}

// Met counts the satisfied criteria
func (c LonglistingCriteria) Met() int {
	n := 0
	for _, ok := range []bool{c.MeetsEducation, c.MeetsExperience, c.MeetsLanguage, c.DocumentsComplete} {
		if ok {
			n++
		}
	}
	return n
}

// LonglistingCandidate holds one application's criteria and the committee's
// independent longlisting judgment
type LonglistingCandidate struct {
	Base
	RecordID      int64               `json:"record_id"`
	CaseID        int64               `json:"case_id"`
	ApplicationID int64               `json:"application_id"`
	Criteria      LonglistingCriteria `json:"criteria"`
	IsLonglisted  bool                `json:"is_longlisted"`
	Remarks       string              `json:"remarks,omitempty"`
}

func (c *LonglistingCandidate) Kind() string { return "longlisting_candidate" }

func (c *LonglistingCandidate) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(c.CaseID),
		parentIndex(c.RecordID),
		applicationIndex(c.ApplicationID),
		refIndex(compositeRef(c.RecordID, c.ApplicationID)),
	}
}

// ShortlistingRecord holds the weights and pass mark for score-based screening
type ShortlistingRecord struct {
	Base
	CaseID           int64   `json:"case_id"`
	AcademicWeight   float64 `json:"academic_weight"`
	ExperienceWeight float64 `json:"experience_weight"`
	OtherWeight      float64 `json:"other_weight"`
	PassingScore     float64 `json:"passing_score"`
}

func (r *ShortlistingRecord) Kind() string { return "shortlisting_record" }

func (r *ShortlistingRecord) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(r.CaseID), refIndex(formatID(r.CaseID))}
}

// ShortlistingCandidate stores only the three input scores; the total and the
// shortlisted flag are computed from them on read
type ShortlistingCandidate struct {
	Base
	RecordID        int64   `json:"record_id"`
	CaseID          int64   `json:"case_id"`
	ApplicationID   int64   `json:"application_id"`
	AcademicScore   float64 `json:"academic_score"`
	ExperienceScore float64 `json:"experience_score"`
	OtherScore      float64 `json:"other_score"`
}

func (c *ShortlistingCandidate) Kind() string { return "shortlisting_candidate" }

func (c *ShortlistingCandidate) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(c.CaseID),
		parentIndex(c.RecordID),
		applicationIndex(c.ApplicationID),
		refIndex(compositeRef(c.RecordID, c.ApplicationID)),
	}
}

// WrittenTest holds the marking scheme of the written test
type WrittenTest struct {
	Base
	CaseID       int64     `json:"case_id"`
	TestDate     time.Time `json:"test_date"`
	TotalMarks   float64   `json:"total_marks"`
	PassingMarks float64   `json:"passing_marks"`
}

func (w *WrittenTest) Kind() string { return "written_test" }

func (w *WrittenTest) Indexes() []IndexEntry {
	return []IndexEntry{caseIndex(w.CaseID), refIndex(formatID(w.CaseID))}
}

// WrittenTestCandidate stores attendance and marks; MarksObtained is nil until recorded
type WrittenTestCandidate struct {
	Base
	TestID        int64    `json:"test_id"`
	CaseID        int64    `json:"case_id"`
	ApplicationID int64    `json:"application_id"`
	Attended      bool     `json:"attended"`
	MarksObtained *float64 `json:"marks_obtained,omitempty"`
}

func (c *WrittenTestCandidate) Kind() string { return "written_test_candidate" }

func (c *WrittenTestCandidate) Indexes() []IndexEntry {
	return []IndexEntry{
		caseIndex(c.CaseID),
		parentIndex(c.TestID),
		applicationIndex(c.ApplicationID),
		refIndex(compositeRef(c.TestID, c.ApplicationID)),
	}
}
