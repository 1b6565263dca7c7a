package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/recruitment-engine/internal/application/dispatcher"
	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/scoring"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	domainwf "github.com/garyjia/recruitment-engine/internal/domain/workflow"
	"github.com/garyjia/recruitment-engine/internal/infrastructure/persistence/memory"
)

const actor = "hr.officer"

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) Subscribe(event.Type, dispatcher.Handler)              {}
func (d *recordingDispatcher) SubscribeNamed(event.Type, string, dispatcher.Handler) {}
func (d *recordingDispatcher) SubscribeAll(string, dispatcher.Handler)               {}
func (d *recordingDispatcher) Unsubscribe(event.Type, string)                        {}
func (d *recordingDispatcher) ListHandlers(event.Type) []dispatcher.HandlerInfo      { return nil }
func (d *recordingDispatcher) Close() error                                          { return nil }

func (d *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.DispatchAsync(ctx, evt)
	return nil
}

func (d *recordingDispatcher) DispatchAsync(_ context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

func (d *recordingDispatcher) count(t event.Type) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, evt := range d.events {
		if evt.Type == t {
			n++
		}
	}
	return n
}

// stubScreener fails the first `failures` calls, then answers with outcome
type stubScreener struct {
	failures int32
	calls    int32
	outcome  port.ScreeningOutcome
}

func (s *stubScreener) Screen(ctx context.Context, _ port.ScreeningSubject) (port.ScreeningOutcome, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= atomic.LoadInt32(&s.failures) {
		return port.ScreeningOutcome{}, apperror.Retryable("sanction screening", errors.New("list provider unavailable"))
	}
	return s.outcome, nil
}

// fixture drives one case through the pipeline. Scores are the underlying
// quality of each applicant and feed every scoring stage.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	engine   *Engine
	stores   port.Stores
	events   *recordingDispatcher
	screener *stubScreener

	caseID      int64
	scores      map[int64]float64
	apps        []int64
	members     []int64
	interviewID int64
}

func newFixture(t *testing.T, scores ...float64) *fixture {
	t.Helper()
	stores := memory.NewStores(memory.NewBackend(), map[string]string{
		SequenceCase:     "RC",
		SequenceReport:   "SR",
		SequenceOffer:    "OF",
		SequenceContract: "CT",
	})
	events := &recordingDispatcher{}
	screener := &stubScreener{}

	e := NewEngine(stores,
		WithDispatcher(events),
		WithScreener(screener),
		WithClock(func() time.Time { return testNow }),
	)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		engine:   e,
		stores:   stores,
		events:   events,
		screener: screener,
		scores:   make(map[int64]float64),
	}

	c, err := e.CreateCase(f.ctx, CaseInput{PositionTitle: "Programme Officer", Department: "Programmes"}, actor)
	require.NoError(t, err)
	f.caseID = c.ID

	for i, score := range scores {
		cand, err := e.RegisterCandidate(f.ctx, CandidateInput{
			FullName:   "Candidate " + string(rune('A'+i)),
			FatherName: "Father " + string(rune('A'+i)),
			Email:      "candidate" + string(rune('a'+i)) + "@example.org",
		})
		require.NoError(t, err)
		f.apps = append(f.apps, cand.ID)
		f.scores[cand.ID] = score
	}
	return f
}

func (f *fixture) current() *entity.RecruitmentCase {
	f.t.Helper()
	c, err := f.engine.GetCase(f.ctx, f.caseID)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) advance() *entity.RecruitmentCase {
	f.t.Helper()
	c, err := f.engine.Advance(f.ctx, f.caseID, actor)
	require.NoError(f.t, err)
	return c
}

// completeStage performs the actions that satisfy the gate of the current stage
func (f *fixture) completeStage() {
	t := f.t
	t.Helper()
	ctx, e, id := f.ctx, f.engine, f.caseID

	switch stage.Stage(f.current().CurrentStep) {
	case stage.TOR:
		_, err := e.SaveTOR(ctx, id, TORInput{PositionTitle: "Programme Officer", Purpose: "Run field programmes"}, actor)
		require.NoError(t, err)
		_, err = e.SubmitTOR(ctx, id, actor)
		require.NoError(t, err)
		_, err = e.ApproveTOR(ctx, id, "director")
		require.NoError(t, err)

	case stage.SRFHRReview:
		_, err := e.SaveSRF(ctx, id, SRFInput{Positions: 1, BudgetLine: "BL-204", MonthlySalary: 1500, DurationMonths: 12}, actor)
		require.NoError(t, err)
		_, err = e.SubmitSRF(ctx, id, actor)
		require.NoError(t, err)
		_, err = e.VerifyHR(ctx, id, "hr.manager")
		require.NoError(t, err)
		_, err = e.VerifyBudget(ctx, id, "finance")
		require.NoError(t, err)
		_, err = e.ApproveSRF(ctx, id, "director")
		require.NoError(t, err)

	case stage.SRFFinanceReview:
		// the SRF approved at HR review satisfies this stage too

	case stage.VacancyAnnouncement:
		v, err := e.CreateVacancy(ctx, id, VacancyInput{Channel: "website", Title: "Programme Officer"}, actor)
		require.NoError(t, err)
		_, err = e.PublishVacancy(ctx, id, v.ID, actor)
		require.NoError(t, err)

	case stage.Applications:
		for i, candID := range f.apps {
			app, err := e.SubmitApplication(ctx, id, candID, actor)
			require.NoError(t, err)
			f.scores[app.ID] = f.scores[candID]
			f.apps[i] = app.ID
		}

	case stage.Committee:
		_, err := e.FormCommittee(ctx, id, "Selection Committee", actor)
		require.NoError(t, err)
		for i, in := range []MemberInput{
			{Name: "Chair Person", Role: entity.MemberRoleChair},
			{Name: "HR Member", Role: entity.MemberRoleHR},
			{Name: "Technical Member", Role: entity.MemberRoleTechnical},
		} {
			m, err := e.AddMember(ctx, id, in, actor)
			require.NoError(t, err, "member %d", i)
			f.members = append(f.members, m.ID)
		}

	case stage.Longlisting:
		for _, appID := range f.apps {
			meets := f.scores[appID] >= 70
			_, err := e.RecordLonglisting(ctx, id, appID, LonglistInput{
				Criteria:     entity.LonglistingCriteria{MeetsEducation: meets, MeetsExperience: meets, MeetsLanguage: true, DocumentsComplete: true},
				IsLonglisted: meets,
			}, actor)
			require.NoError(t, err)
		}

	case stage.Shortlisting:
		weights := scoring.ShortlistWeights{Academic: 0.20, Experience: 0.30, Other: 0.50}
		passing := 60.0
		_, err := e.ConfigureShortlisting(ctx, id, ShortlistConfig{Weights: &weights, PassingScore: &passing}, actor)
		require.NoError(t, err)
		for _, appID := range f.active() {
			s := f.scores[appID]
			_, err := e.ScoreShortlistCandidate(ctx, id, appID, ShortlistScores{Academic: s, Experience: s, Other: s}, actor)
			require.NoError(t, err)
		}

	case stage.WrittenTest:
		passing := 50.0
		_, err := e.ScheduleWrittenTest(ctx, id, TestInput{TestDate: testNow, TotalMarks: 100, PassingMarks: &passing}, actor)
		require.NoError(t, err)
		for _, appID := range f.active() {
			_, err := e.RecordTestAttendance(ctx, id, appID, true, actor)
			require.NoError(t, err)
			_, err = e.RecordTestMarks(ctx, id, appID, scoring.Clamp(f.scores[appID], 40, 95), actor)
			require.NoError(t, err)
		}

	case stage.Interview:
		interview, err := e.ScheduleInterview(ctx, id, InterviewInput{ScheduledAt: testNow, Venue: "Room 2"}, actor)
		require.NoError(t, err)
		f.interviewID = interview.ID
		for _, appID := range f.active() {
			if f.scores[appID] <= 75 {
				continue
			}
			_, err := e.InviteToInterview(ctx, id, appID, true, actor)
			require.NoError(t, err)
			for _, memberID := range f.members {
				_, err := e.RecordEvaluation(ctx, id, appID, EvaluationInput{
					EvaluatorID:    memberID,
					Scores:         entity.DimensionScores{TechnicalKnowledge: 4, Communication: 4, ProblemSolving: 4, ExperienceRelevance: 4, CulturalFit: 4},
					Recommendation: entity.Recommend,
				}, actor)
				require.NoError(t, err)
			}
		}
		_, err = e.RankCandidates(ctx, f.interviewID, actor)
		require.NoError(t, err)

	case stage.SelectionReport:
		_, err := e.SaveReport(ctx, id, "The committee recommends the rank-1 candidate.", actor)
		require.NoError(t, err)
		_, err = e.SubmitReport(ctx, id, actor)
		require.NoError(t, err)
		_, err = e.ApproveReport(ctx, id, "director")
		require.NoError(t, err)

	case stage.Offer:
		offer, err := e.CreateOffer(ctx, id, f.hire(), OfferInput{Salary: 1500, Currency: "USD"}, actor)
		require.NoError(t, err)
		_, err = e.SendOffer(ctx, id, offer.ID, actor)
		require.NoError(t, err)
		_, err = e.AcceptOffer(ctx, id, offer.ID, actor)
		require.NoError(t, err)

	case stage.SanctionCheck:
		check, err := e.RunSanctionCheck(ctx, id, actor)
		require.NoError(t, err)
		require.Equal(t, domainwf.StateCleared, check.Status)

	case stage.BackgroundCheck:
		f.completeBackgroundCheck()

	case stage.Contract:
		f.completeContract()
	}
}

func (f *fixture) completeBackgroundCheck() {
	t := f.t
	t.Helper()
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.StartBackgroundCheck(ctx, id, actor)
	require.NoError(t, err)
	for _, name := range []string{"First Referee", "Second Referee"} {
		ref, err := e.AddReference(ctx, id, ReferenceInput{Name: name, Contact: "+93 700 000 000"}, actor)
		require.NoError(t, err)
		_, err = e.SetReferenceStatus(ctx, id, ref.ID, entity.TrackVerified, "confirmed", actor)
		require.NoError(t, err)
	}
	for track, status := range map[string]entity.TrackStatus{
		entity.TrackGuaranteeLetter: entity.TrackVerified,
		entity.TrackHomeAddress:     entity.TrackVerified,
		entity.TrackCriminalRecord:  entity.TrackCleared,
	} {
		_, err := e.SetBackgroundTrack(ctx, id, track, status, "", actor)
		require.NoError(t, err)
	}
	_, err = e.CompleteBackgroundCheck(ctx, id, actor)
	require.NoError(t, err)
}

func (f *fixture) completeContract() {
	t := f.t
	t.Helper()
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.DraftContract(ctx, id, ContractInput{Salary: 1500}, actor)
	require.NoError(t, err)
	_, err = e.SignContract(ctx, id, actor)
	require.NoError(t, err)
	for _, item := range f.checklist() {
		_, err := e.SetChecklistItem(ctx, id, item.ID, true, actor)
		require.NoError(t, err)
	}
	_, err = e.ActivateContract(ctx, id, actor)
	require.NoError(t, err)
}

func (f *fixture) checklist() []*entity.ChecklistItem {
	f.t.Helper()
	view, err := f.engine.StageView(f.ctx, f.caseID, int(stage.Contract))
	require.NoError(f.t, err)
	return view.Snapshot.Checklist
}

// driveTo completes and leaves every stage before target
func (f *fixture) driveTo(target stage.Stage) {
	f.t.Helper()
	for stage.Stage(f.current().CurrentStep) < target {
		f.completeStage()
		f.advance()
	}
}

// active returns the applications still competing
func (f *fixture) active() []int64 {
	f.t.Helper()
	apps, err := f.engine.Applications(f.ctx, f.caseID)
	require.NoError(f.t, err)
	var out []int64
	for _, app := range apps {
		if app.Status != entity.ApplicationRejected && app.Status != entity.ApplicationWithdrawn {
			out = append(out, app.ID)
		}
	}
	return out
}

func (f *fixture) hire() int64 {
	f.t.Helper()
	results, err := f.engine.Results(f.ctx, f.interviewID)
	require.NoError(f.t, err)
	require.NotEmpty(f.t, results)
	return results[0].ApplicationID
}

func (f *fixture) application(id int64) *entity.Application {
	f.t.Helper()
	app, err := f.stores.Applications.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, app)
	return app
}

func TestCreateCase(t *testing.T) {
	f := newFixture(t)

	c := f.current()
	assert.Equal(t, 1, c.CurrentStep)
	assert.Equal(t, entity.CaseStatusDraft, c.Status)
	assert.Regexp(t, `^RC-\d{4}-0001$`, c.Code)
	assert.Equal(t, entity.HiringApproachCompetitive, c.HiringApproach)
	assert.Equal(t, entity.ContractTypeFixedTerm, c.ContractType)

	_, err := f.engine.CreateCase(f.ctx, CaseInput{PositionTitle: "  "}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.engine.CreateCase(f.ctx, CaseInput{PositionTitle: "Driver", ContractType: "permanent"}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAdvance_RefusesUnmetStage(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Advance(f.ctx, f.caseID, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{"TOR has not been drafted"}, apperror.UnmetConditions(err))

	_, err = f.engine.SaveTOR(f.ctx, f.caseID, TORInput{PositionTitle: "Programme Officer", Purpose: "Field work"}, actor)
	require.NoError(t, err)
	_, err = f.engine.SubmitTOR(f.ctx, f.caseID, actor)
	require.NoError(t, err)

	_, err = f.engine.Advance(f.ctx, f.caseID, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{"TOR is pending_approval, not approved"}, apperror.UnmetConditions(err))

	c := f.current()
	assert.Equal(t, 1, c.CurrentStep)
	assert.Equal(t, entity.CaseStatusTORPending, c.Status)
}

func TestAdvance_UnknownCase(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Advance(f.ctx, 9999, actor)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAdvance_MovesOneStageAndEmits(t *testing.T) {
	f := newFixture(t)

	f.completeStage()
	c := f.advance()

	assert.Equal(t, 2, c.CurrentStep)
	assert.Equal(t, entity.CaseStatusSRFReview, c.Status)
	assert.Equal(t, 1, f.events.count(event.TypeCaseAdvanced))
	assert.Equal(t, 1, f.events.count(event.TypeCaseCreated))
}

func TestActions_RefuseStageNotReached(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateVacancy(f.ctx, f.caseID, VacancyInput{Channel: "website", Title: "Officer"}, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Contains(t, err.Error(), "stage not reached")
}

func TestSRF_ApprovalNeedsBothVerifications(t *testing.T) {
	f := newFixture(t)
	f.driveTo(stage.SRFHRReview)
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.SaveSRF(ctx, id, SRFInput{Positions: 0, BudgetLine: "BL"}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.SaveSRF(ctx, id, SRFInput{Positions: 1, BudgetLine: "BL-1", MonthlySalary: 900}, actor)
	require.NoError(t, err)
	_, err = e.SubmitSRF(ctx, id, actor)
	require.NoError(t, err)
	_, err = e.VerifyHR(ctx, id, "hr.manager")
	require.NoError(t, err)

	_, err = e.ApproveSRF(ctx, id, "director")
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Contains(t, apperror.UnmetConditions(err), "budget verification missing")

	srf, err := e.RejectSRF(ctx, id, "director", "salary above grade")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateDraft, srf.Status)
	assert.False(t, srf.HRVerified)
	assert.False(t, srf.BudgetVerified)

	_, err = e.Advance(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{"SRF is draft, not approved", "HR verification missing", "budget verification missing"}, apperror.UnmetConditions(err))
}

func TestOverride_OpensPastStage(t *testing.T) {
	f := newFixture(t, 80)
	f.driveTo(stage.Applications)
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.CreateVacancy(ctx, id, VacancyInput{Channel: "radio", Title: "Officer"}, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Contains(t, err.Error(), "edit override is required")

	_, err = e.GrantOverride(ctx, id, int(stage.Applications), "director", "late channel")
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "the current stage cannot be overridden")

	_, err = e.GrantOverride(ctx, id, 0, "director", "bad stage")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	grant, err := e.GrantOverride(ctx, id, int(stage.VacancyAnnouncement), "director", "late channel")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.Token)

	_, err = e.GrantOverride(ctx, id, int(stage.VacancyAnnouncement), "director", "again")
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	_, err = e.CreateVacancy(ctx, id, VacancyInput{Channel: "radio", Title: "Officer"}, actor)
	require.NoError(t, err)

	view, err := e.StageView(ctx, id, int(stage.VacancyAnnouncement))
	require.NoError(t, err)
	assert.True(t, view.Editable)
	assert.Len(t, view.Snapshot.Vacancies, 2)

	_, err = e.RevokeOverride(ctx, id, grant.ID, "director")
	require.NoError(t, err)

	_, err = e.CreateVacancy(ctx, id, VacancyInput{Channel: "newspaper", Title: "Officer"}, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	c := f.current()
	assert.Equal(t, int(stage.Applications), c.CurrentStep, "overrides never move the case")
	assert.Equal(t, 1, f.events.count(event.TypeOverrideGranted))
	assert.Equal(t, 1, f.events.count(event.TypeOverrideRevoked))
}

func TestCancelCase(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CancelCase(f.ctx, f.caseID, actor, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	c, err := f.engine.CancelCase(f.ctx, f.caseID, actor, "position frozen")
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusCancelled, c.Status)

	_, err = f.engine.SaveTOR(f.ctx, f.caseID, TORInput{PositionTitle: "x", Purpose: "y"}, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Contains(t, err.Error(), "case is cancelled")

	_, err = f.engine.CancelCase(f.ctx, f.caseID, actor, "again")
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
}

func TestFailedActionLeavesNoTrace(t *testing.T) {
	f := newFixture(t)

	before, err := f.engine.History(f.ctx, f.caseID)
	require.NoError(t, err)

	_, err = f.engine.ApproveTOR(f.ctx, f.caseID, "director")
	require.Error(t, err)

	after, err := f.engine.History(f.ctx, f.caseID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestCommittee_SingleChairAndConflicts(t *testing.T) {
	f := newFixture(t, 80)
	f.driveTo(stage.Committee)
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.AddMember(ctx, id, MemberInput{Name: "Early"}, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "committee must be formed first")

	_, err = e.FormCommittee(ctx, id, "Panel", actor)
	require.NoError(t, err)
	_, err = e.FormCommittee(ctx, id, "Panel", actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	chair, err := e.AddMember(ctx, id, MemberInput{Name: "Chair", IsChair: true}, actor)
	require.NoError(t, err)
	_, err = e.AddMember(ctx, id, MemberInput{Name: "Second Chair", Role: entity.MemberRoleChair}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.DeclareConflict(ctx, id, chair.ID, true, "", actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	decl, err := e.DeclareConflict(ctx, id, chair.ID, true, "related to an applicant", actor)
	require.NoError(t, err)
	again, err := e.DeclareConflict(ctx, id, chair.ID, false, "", actor)
	require.NoError(t, err)
	assert.Equal(t, decl.ID, again.ID, "a member has one declaration")

	_, err = e.Advance(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{"committee has 1 of 3 required members"}, apperror.UnmetConditions(err))

	require.NoError(t, e.RemoveMember(ctx, id, chair.ID, actor))
	view, err := e.StageView(ctx, id, int(stage.Committee))
	require.NoError(t, err)
	assert.Empty(t, view.Snapshot.Members)
	assert.Empty(t, view.Snapshot.Declarations)
}

func TestLonglisting_SettlesFunnel(t *testing.T) {
	f := newFixture(t, 85, 55)
	f.driveTo(stage.Longlisting)
	f.completeStage()

	view, err := f.engine.StageView(f.ctx, f.caseID, int(stage.Longlisting))
	require.NoError(t, err)
	require.Len(t, view.Snapshot.Longlist.Candidates, 2)
	assert.Equal(t, 4, view.Snapshot.Longlist.Candidates[0].CriteriaMet)
	assert.Equal(t, 2, view.Snapshot.Longlist.Candidates[1].CriteriaMet)
	assert.True(t, view.Complete)

	f.advance()
	assert.Equal(t, entity.ApplicationLonglisted, f.application(f.apps[0]).Status)
	assert.Equal(t, entity.ApplicationRejected, f.application(f.apps[1]).Status)

	_, err = f.engine.ScoreShortlistCandidate(f.ctx, f.caseID, f.apps[1], ShortlistScores{Academic: 90}, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "rejected applications stay out of later stages")
}

func TestShortlisting_ClampsAndRecomputes(t *testing.T) {
	f := newFixture(t, 85)
	f.driveTo(stage.Shortlisting)
	ctx, e, id := f.ctx, f.engine, f.caseID

	row, err := e.ScoreShortlistCandidate(ctx, id, f.apps[0], ShortlistScores{Academic: 150, Experience: 50, Other: -10}, actor)
	require.NoError(t, err)
	assert.Equal(t, 100.0, row.AcademicScore)
	assert.Equal(t, 0.0, row.OtherScore)
	assert.InDelta(t, 35.0, row.TotalScore, 1e-9)
	assert.False(t, row.IsShortlisted)

	passing := 30.0
	_, err = e.ConfigureShortlisting(ctx, id, ShortlistConfig{PassingScore: &passing}, actor)
	require.NoError(t, err)

	view, err := e.StageView(ctx, id, int(stage.Shortlisting))
	require.NoError(t, err)
	require.Len(t, view.Snapshot.Shortlist.Candidates, 1)
	assert.True(t, view.Snapshot.Shortlist.Candidates[0].IsShortlisted)

	bad := scoring.ShortlistWeights{Academic: 0.5, Experience: 0.5, Other: 0.5}
	_, err = e.ConfigureShortlisting(ctx, id, ShortlistConfig{Weights: &bad}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestWrittenTest_MarksNeedAttendance(t *testing.T) {
	f := newFixture(t, 85)
	f.driveTo(stage.WrittenTest)
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.RecordTestAttendance(ctx, id, f.apps[0], true, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "the test must be scheduled")

	passing := 50.0
	_, err = e.ScheduleWrittenTest(ctx, id, TestInput{TestDate: testNow, TotalMarks: 100, PassingMarks: &passing}, actor)
	require.NoError(t, err)

	_, err = e.RecordTestAttendance(ctx, id, f.apps[0], false, actor)
	require.NoError(t, err)
	_, err = e.RecordTestMarks(ctx, id, f.apps[0], 70, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	_, err = e.RecordTestAttendance(ctx, id, f.apps[0], true, actor)
	require.NoError(t, err)
	row, err := e.RecordTestMarks(ctx, id, f.apps[0], 140, actor)
	require.NoError(t, err)
	require.NotNil(t, row.MarksObtained)
	assert.Equal(t, 100.0, *row.MarksObtained)
	assert.True(t, row.IsPassed)
}

func TestRanking_IsIdempotentAndStale(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.Interview)
	f.completeStage()
	ctx, e := f.ctx, f.engine

	first, err := e.RankCandidates(ctx, f.interviewID, actor)
	require.NoError(t, err)
	second, err := e.RankCandidates(ctx, f.interviewID, actor)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].ApplicationID, second[i].ApplicationID)
		assert.Equal(t, first[i].Rank, second[i].Rank)
		assert.Equal(t, first[i].FinalScore, second[i].FinalScore)
	}

	// a changed evaluation marks the ranking stale until it is recomputed
	_, err = e.RecordEvaluation(ctx, f.caseID, f.apps[0], EvaluationInput{
		EvaluatorID:    f.members[0],
		Scores:         entity.DimensionScores{TechnicalKnowledge: 5, Communication: 5, ProblemSolving: 5, ExperienceRelevance: 5, CulturalFit: 5},
		Recommendation: entity.RecommendStrongly,
	}, actor)
	require.NoError(t, err)

	_, err = e.Advance(ctx, f.caseID, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{"candidates have not been ranked since the last evaluation"}, apperror.UnmetConditions(err))
}

func TestRecordEvaluation_Guards(t *testing.T) {
	f := newFixture(t, 85, 82)
	f.driveTo(stage.Interview)
	ctx, e, id := f.ctx, f.engine, f.caseID

	interview, err := e.ScheduleInterview(ctx, id, InterviewInput{ScheduledAt: testNow}, actor)
	require.NoError(t, err)

	in := EvaluationInput{
		EvaluatorID:    f.members[0],
		Scores:         entity.DimensionScores{TechnicalKnowledge: 3, Communication: 3, ProblemSolving: 3, ExperienceRelevance: 3, CulturalFit: 3},
		Recommendation: entity.RecommendNeutral,
	}

	_, err = e.RecordEvaluation(ctx, id, f.apps[0], in, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "not invited")

	_, err = e.InviteToInterview(ctx, id, f.apps[0], false, actor)
	require.NoError(t, err)
	_, err = e.RecordEvaluation(ctx, id, f.apps[0], in, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "absent")

	bad := in
	bad.Scores.CulturalFit = 6
	_, err = e.RecordEvaluation(ctx, id, f.apps[0], bad, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	outsider := in
	outsider.EvaluatorID = 9999
	_, err = e.InviteToInterview(ctx, id, f.apps[0], true, actor)
	require.NoError(t, err)
	_, err = e.RecordEvaluation(ctx, id, f.apps[0], outsider, actor)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = e.RankCandidates(ctx, interview.ID, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	weight := 0.7
	_, err = e.ScheduleInterview(ctx, id, InterviewInput{ScheduledAt: testNow, PriorWeight: &weight}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation, "weights must sum to 1")
}

func TestOffer_OnlyRankOneHire(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.Offer)
	ctx, e, id := f.ctx, f.engine, f.caseID

	hire := f.hire()
	var other int64
	for _, appID := range f.apps {
		if appID != hire && f.scores[appID] > 75 {
			other = appID
			break
		}
	}

	_, err := e.CreateOffer(ctx, id, other, OfferInput{Salary: 1500, Currency: "USD"}, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	_, err = e.CreateOffer(ctx, id, hire, OfferInput{Salary: 1500, Currency: "usd"}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = e.CreateOffer(ctx, id, hire, OfferInput{Salary: 0, Currency: "USD"}, actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	offer, err := e.CreateOffer(ctx, id, hire, OfferInput{Salary: 1500, Currency: "USD"}, actor)
	require.NoError(t, err)
	assert.Regexp(t, `^OF-\d{4}-0001$`, offer.OfferNumber)

	_, err = e.CreateOffer(ctx, id, hire, OfferInput{Salary: 1600, Currency: "USD"}, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "one live offer at a time")

	_, err = e.AcceptOffer(ctx, id, offer.ID, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "a draft cannot be accepted")

	_, err = e.SendOffer(ctx, id, offer.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationOffered, f.application(hire).Status)

	declined, err := e.DeclineOffer(ctx, id, offer.ID, actor, "accepted another post")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateDeclined, declined.Status)

	_, err = e.Advance(ctx, id, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	_, err = e.CreateOffer(ctx, id, hire, OfferInput{Salary: 1800, Currency: "USD"}, actor)
	assert.NoError(t, err, "a declined offer may be renegotiated")
}

func TestSanctionCheck_RetriesAndFlags(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.SanctionCheck)
	ctx, e, id := f.ctx, f.engine, f.caseID

	atomic.StoreInt32(&f.screener.failures, 1)
	check, err := e.RunSanctionCheck(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrRetryable)
	require.NotNil(t, check)
	assert.Equal(t, domainwf.StatePending, check.Status)
	assert.Equal(t, 1, check.Attempts)

	f.screener.outcome = port.ScreeningOutcome{Flagged: true, Details: "matched watchlist entry"}
	check, err = e.RunSanctionCheck(ctx, id, actor)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateFlagged, check.Status)
	assert.Equal(t, 2, check.Attempts)
	assert.Equal(t, "matched watchlist entry", check.MatchDetails)

	_, err = e.Advance(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{"sanction check is flagged, not cleared"}, apperror.UnmetConditions(err))

	_, err = e.OverrideSanction(ctx, id, "director", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	check, err = e.OverrideSanction(ctx, id, "director", "namesake, different date of birth")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateCleared, check.Status)
	assert.Equal(t, "director", check.OverriddenBy)

	assert.Equal(t, 2, f.events.count(event.TypeSanctionScreened))
	f.advance()
}

func TestSanctionCheck_NeedsFatherName(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.SanctionCheck)

	hire := f.application(f.hire())
	_, err := f.engine.UpdateCandidate(f.ctx, hire.CandidateID, CandidateInput{
		FullName: "Candidate C",
		Email:    "candidatec@example.org",
	})
	require.NoError(t, err)

	_, err = f.engine.RunSanctionCheck(f.ctx, f.caseID, actor)
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.screener.calls))
}

func TestBackgroundCheck_NamesUnmetTracks(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.BackgroundCheck)
	ctx, e, id := f.ctx, f.engine, f.caseID

	_, err := e.AddReference(ctx, id, ReferenceInput{Name: "Early", Contact: "x"}, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	_, err = e.StartBackgroundCheck(ctx, id, actor)
	require.NoError(t, err)

	ref, err := e.AddReference(ctx, id, ReferenceInput{Name: "Referee", Contact: "referee@example.org"}, actor)
	require.NoError(t, err)
	_, err = e.SetReferenceStatus(ctx, id, ref.ID, entity.TrackVerified, "", actor)
	require.NoError(t, err)
	_, err = e.SetBackgroundTrack(ctx, id, entity.TrackGuaranteeLetter, entity.TrackReceived, "", actor)
	require.NoError(t, err)

	_, err = e.SetBackgroundTrack(ctx, id, entity.TrackCriminalRecord, entity.TrackVerified, "", actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = e.SetBackgroundTrack(ctx, id, "credit_history", entity.TrackVerified, "", actor)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.CompleteBackgroundCheck(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Equal(t, []string{
		"references: 1 of 2 verified",
		"guarantee_letter: received",
		"home_address: pending",
		"criminal_record: pending",
	}, apperror.UnmetConditions(err))
}

func TestContract_ActivationNeedsChecklist(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.Contract)
	ctx, e, id := f.ctx, f.engine, f.caseID

	contract, err := e.DraftContract(ctx, id, ContractInput{Salary: 1500}, actor)
	require.NoError(t, err)
	assert.Equal(t, entity.ContractTypeFixedTerm, contract.ContractType)
	assert.Len(t, f.checklist(), len(e.Config().RequiredDocuments))

	_, err = e.ActivateContract(ctx, id, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "unsigned")

	_, err = e.RequestSignature(ctx, id, actor)
	require.NoError(t, err)
	_, err = e.SignContract(ctx, id, actor)
	require.NoError(t, err)

	extra, err := e.AddChecklistItem(ctx, id, "medical_certificate", false, actor)
	require.NoError(t, err)

	_, err = e.ActivateContract(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
	assert.Len(t, apperror.UnmetConditions(err), len(e.Config().RequiredDocuments))

	for _, item := range f.checklist() {
		if item.ID == extra.ID {
			continue
		}
		_, err := e.SetChecklistItem(ctx, id, item.ID, true, actor)
		require.NoError(t, err)
	}

	activated, err := e.ActivateContract(ctx, id, actor)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateActive, activated.Status)

	c := f.current()
	assert.Equal(t, entity.CaseStatusCompleted, c.Status)
	assert.Equal(t, 15, c.CurrentStep)
	assert.Equal(t, entity.ApplicationHired, f.application(contract.ApplicationID).Status)
}

func TestStageView(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.StageView(f.ctx, f.caseID, 16)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.engine.StageView(f.ctx, f.caseID, 2)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	view, err := f.engine.StageView(f.ctx, f.caseID, 1)
	require.NoError(t, err)
	assert.Equal(t, "tor", view.Name)
	assert.False(t, view.Complete)
	assert.True(t, view.Editable)
	assert.Equal(t, []string{"TOR has not been drafted"}, view.Unmet)
}

func TestConcurrentAdvance_SingleWinner(t *testing.T) {
	f := newFixture(t)
	f.completeStage()

	var wg sync.WaitGroup
	var succeeded int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Advance(f.ctx, f.caseID, actor); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	// the SRF stage gate is unmet, so only the first advance can pass
	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, 2, f.current().CurrentStep)
}

func TestStoreTimeoutIsRetryable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreTimeout = time.Nanosecond
	e := NewEngine(memory.NewStores(memory.NewBackend(), nil), WithConfig(cfg))

	_, err := e.CreateCase(context.Background(), CaseInput{PositionTitle: "Officer"}, actor)
	assert.ErrorIs(t, err, apperror.ErrRetryable)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.PriorWeight = 0.9
	assert.ErrorIs(t, cfg.Validate(), apperror.ErrValidation)

	cfg = DefaultConfig()
	cfg.Rules.MinCommitteeMembers = 0
	assert.ErrorIs(t, cfg.Validate(), apperror.ErrValidation)
}

// failingUpdates refuses every update with err
type failingUpdates[T entity.Record] struct {
	port.Store[T]
	err error
}

func (s failingUpdates[T]) Update(context.Context, int64, func(T) error) (T, error) {
	var zero T
	return zero, s.err
}

func TestApprovalEvents_PublishedOnlyAfterCommit(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.Offer)

	offer, err := f.engine.CreateOffer(f.ctx, f.caseID, f.hire(), OfferInput{Salary: 1500, Currency: "USD"}, actor)
	require.NoError(t, err)

	committed := f.events.count(event.TypeApprovalTransitioned)

	diskFull := errors.New("disk full")
	stores := f.stores
	stores.Applications = failingUpdates[*entity.Application]{Store: f.stores.Applications, err: diskFull}
	events := &recordingDispatcher{}
	e := NewEngine(stores, WithDispatcher(events), WithClock(func() time.Time { return testNow }))

	_, err = e.SendOffer(f.ctx, f.caseID, offer.ID, actor)
	require.ErrorIs(t, err, diskFull)

	stored, err := f.stores.Offers.GetByID(f.ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateDraft, stored.Status)
	assert.Zero(t, events.count(event.TypeApprovalTransitioned))

	sent, err := f.engine.SendOffer(f.ctx, f.caseID, offer.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateSent, sent.Status)
	assert.Equal(t, committed+1, f.events.count(event.TypeApprovalTransitioned))
}

func TestWithdrawnHire_CannotCompleteTheCase(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.Contract)
	ctx, e, id := f.ctx, f.engine, f.caseID

	contract, err := e.DraftContract(ctx, id, ContractInput{Salary: 1500}, actor)
	require.NoError(t, err)
	_, err = e.SignContract(ctx, id, actor)
	require.NoError(t, err)
	for _, item := range f.checklist() {
		_, err := e.SetChecklistItem(ctx, id, item.ID, true, actor)
		require.NoError(t, err)
	}

	_, err = e.WithdrawApplication(ctx, id, contract.ApplicationID, actor, "accepted another post")
	require.NoError(t, err)

	offers, err := f.stores.Offers.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, domainwf.StateWithdrawn, offers[0].Status)

	_, err = e.ActivateContract(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	view, err := e.StageView(ctx, id, int(stage.Contract))
	require.NoError(t, err)
	assert.Contains(t, view.Unmet, "selected application is withdrawn")

	_, err = e.Advance(ctx, id, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

	assert.NotEqual(t, entity.CaseStatusCompleted, f.current().Status)
	assert.Equal(t, entity.ApplicationWithdrawn, f.application(contract.ApplicationID).Status)
}

func TestDroppedHire_StopsSanctionAndBackground(t *testing.T) {
	t.Run("sanction check", func(t *testing.T) {
		f := newFixture(t, 85, 82, 88)
		f.driveTo(stage.SanctionCheck)

		_, err := f.engine.WithdrawApplication(f.ctx, f.caseID, f.hire(), actor, "moved abroad")
		require.NoError(t, err)

		_, err = f.engine.RunSanctionCheck(f.ctx, f.caseID, actor)
		assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
		assert.Equal(t, int32(0), atomic.LoadInt32(&f.screener.calls))
	})

	t.Run("background check", func(t *testing.T) {
		f := newFixture(t, 85, 82, 88)
		f.driveTo(stage.BackgroundCheck)

		_, err := f.engine.RejectApplication(f.ctx, f.caseID, f.hire(), actor, "forged certificate")
		require.NoError(t, err)

		_, err = f.engine.StartBackgroundCheck(f.ctx, f.caseID, actor)
		assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)

		_, err = f.engine.Advance(f.ctx, f.caseID, actor)
		require.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
		assert.Equal(t, []string{"selected application is rejected"}, apperror.UnmetConditions(err))
	})
}

func TestRanking_SkipsDroppedAndAbsentCandidates(t *testing.T) {
	f := newFixture(t, 85, 82, 88)
	f.driveTo(stage.Interview)
	f.completeStage()
	ctx, e, id := f.ctx, f.engine, f.caseID

	top := f.hire()
	var absent, remaining int64
	for _, appID := range f.apps {
		switch {
		case appID == top:
		case absent == 0:
			absent = appID
		default:
			remaining = appID
		}
	}

	_, err := e.WithdrawApplication(ctx, id, top, actor, "withdrew after interview")
	require.NoError(t, err)
	_, err = e.InviteToInterview(ctx, id, absent, false, actor)
	require.NoError(t, err)

	_, err = e.Advance(ctx, id, actor)
	require.ErrorIs(t, err, apperror.ErrPreconditionNotMet, "ranking is stale")

	results, err := e.RankCandidates(ctx, f.interviewID, actor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, remaining, results[0].ApplicationID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, entity.ResultHire, results[0].Recommendation)

	_, err = e.InviteToInterview(ctx, id, remaining, false, actor)
	require.NoError(t, err)
	_, err = e.RankCandidates(ctx, f.interviewID, actor)
	assert.ErrorIs(t, err, apperror.ErrPreconditionNotMet)
}
