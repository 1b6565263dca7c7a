package stage

import (
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/scoring"
)

// Snapshot is the joined data of a case that the gates inspect.
// Loaders fill only the parts the requested stage needs.
type Snapshot struct {
	Case *entity.RecruitmentCase `json:"case"`

	TOR *entity.TOR `json:"tor,omitempty"`
	SRF *entity.SRF `json:"srf,omitempty"`

	Vacancies    []*entity.Vacancy     `json:"vacancies,omitempty"`
	Applications []*entity.Application `json:"applications,omitempty"`

	Committee    *entity.Committee                       `json:"committee,omitempty"`
	Members      []*entity.Member                        `json:"members,omitempty"`
	Declarations []*entity.ConflictOfInterestDeclaration `json:"declarations,omitempty"`

	Longlist  *LonglistView  `json:"longlist,omitempty"`
	Shortlist *ShortlistView `json:"shortlist,omitempty"`
	Test      *TestView      `json:"written_test,omitempty"`
	Interview *InterviewView `json:"interview,omitempty"`

	Report *entity.SelectionReport `json:"report,omitempty"`
	Offers []*entity.Offer         `json:"offers,omitempty"`

	// Selected is the application the sanction check was run for
	Selected *entity.Application `json:"selected_application,omitempty"`

	Sanction   *entity.SanctionCheck   `json:"sanction,omitempty"`
	Background *entity.BackgroundCheck `json:"background,omitempty"`
	References []*entity.Reference     `json:"references,omitempty"`

	Contract  *entity.Contract        `json:"contract,omitempty"`
	Checklist []*entity.ChecklistItem `json:"checklist,omitempty"`
}

// LonglistView joins a longlisting record with its candidates
type LonglistView struct {
	Record     *entity.LonglistingRecord `json:"record"`
	Candidates []LonglistRow             `json:"candidates"`
}

// LonglistRow exposes the number of criteria met next to the committee's judgment
type LonglistRow struct {
	*entity.LonglistingCandidate
	CriteriaMet int `json:"criteria_met"`
}

// ShortlistView joins a shortlisting record with computed outcomes
type ShortlistView struct {
	Record     *entity.ShortlistingRecord `json:"record"`
	Candidates []ShortlistRow             `json:"candidates"`
}

// ShortlistRow is a candidate with its derived total and flag
type ShortlistRow struct {
	*entity.ShortlistingCandidate
	scoring.ShortlistOutcome
}

// TestView joins a written test with computed outcomes
type TestView struct {
	Test       *entity.WrittenTest `json:"test"`
	Candidates []TestRow           `json:"candidates"`
}

// TestRow is a test candidate with its derived pass flag
type TestRow struct {
	*entity.WrittenTestCandidate
	scoring.TestOutcome
}

// InterviewView joins an interview with its invitees, evaluations and ranking
type InterviewView struct {
	Interview   *entity.Interview            `json:"interview"`
	Candidates  []*entity.InterviewCandidate `json:"candidates"`
	Evaluations []*entity.Evaluation         `json:"evaluations"`
	Results     []*entity.InterviewResult    `json:"results"`
}

// NewLonglistView builds the longlisting projection
func NewLonglistView(rec *entity.LonglistingRecord, cands []*entity.LonglistingCandidate) *LonglistView {
	rows := make([]LonglistRow, len(cands))
	for i, c := range cands {
		rows[i] = LonglistRow{LonglistingCandidate: c, CriteriaMet: c.Criteria.Met()}
	}
	return &LonglistView{Record: rec, Candidates: rows}
}

// NewShortlistView recomputes every candidate's outcome from its scores
func NewShortlistView(rec *entity.ShortlistingRecord, cands []*entity.ShortlistingCandidate) *ShortlistView {
	rows := make([]ShortlistRow, len(cands))
	for i, c := range cands {
		rows[i] = ShortlistRow{ShortlistingCandidate: c, ShortlistOutcome: scoring.Shortlist(rec, c)}
	}
	return &ShortlistView{Record: rec, Candidates: rows}
}

// NewTestView recomputes every candidate's pass flag from the marks
func NewTestView(test *entity.WrittenTest, cands []*entity.WrittenTestCandidate) *TestView {
	rows := make([]TestRow, len(cands))
	for i, c := range cands {
		rows[i] = TestRow{WrittenTestCandidate: c, TestOutcome: scoring.WrittenTest(test, c)}
	}
	return &TestView{Test: test, Candidates: rows}
}
