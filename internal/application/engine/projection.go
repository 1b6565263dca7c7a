package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// StageView is the read projection of one stage of a case
type StageView struct {
	Stage    int             `json:"stage"`
	Name     string          `json:"name"`
	Snapshot *stage.Snapshot `json:"data"`
	// Unmet lists what keeps the stage from being complete
	Unmet    []string `json:"unmet"`
	Complete bool     `json:"complete"`
	// Editable reports whether actions of the stage are currently accepted
	Editable bool `json:"editable"`
}

// StageView returns the joined data of a reached stage with its derived
// outcomes and gate verdict
func (e *Engine) StageView(ctx context.Context, caseID int64, step int) (*StageView, error) {
	s, err := stage.Parse(step)
	if err != nil {
		return nil, apperror.Validation("stage", "%v", err)
	}

	var view *StageView
	err = e.bounded(ctx, "stage view", func(ctx context.Context) error {
		c, err := mustGet(ctx, e.stores.Cases, "recruitment case", caseID)
		if err != nil {
			return err
		}
		current := stage.Stage(c.CurrentStep)
		if s > current {
			return apperror.Precondition("stage view", fmt.Sprintf("stage not reached: case is at %s", current))
		}

		snap, err := e.load(ctx, c, s)
		if err != nil {
			return err
		}
		unmet := stage.Unmet(s, snap, e.cfg.Rules)

		editable := !c.Status.IsClosed() && s == current
		if !editable && !c.Status.IsClosed() {
			overrides, err := byCase(ctx, e.stores.Overrides, c.ID)
			if err != nil {
				return err
			}
			for _, o := range overrides {
				if o.IsActive() && stage.Stage(o.Stage) == s {
					editable = true
					break
				}
			}
		}

		view = &StageView{
			Stage:    int(s),
			Name:     s.Name(),
			Snapshot: snap,
			Unmet:    unmet,
			Complete: len(unmet) == 0,
			Editable: editable,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// loader fills the parts of a snapshot one stage needs
type loader func(ctx context.Context, e *Engine, snap *stage.Snapshot) error

var loaders = map[stage.Stage][]loader{
	stage.TOR:                 {loadTOR},
	stage.SRFHRReview:         {loadSRF},
	stage.SRFFinanceReview:    {loadSRF},
	stage.VacancyAnnouncement: {loadVacancies},
	stage.Applications:        {loadApplications},
	stage.Committee:           {loadCommittee},
	stage.Longlisting:         {loadLonglist},
	stage.Shortlisting:        {loadShortlist},
	stage.WrittenTest:         {loadTest},
	stage.Interview:           {loadInterview},
	stage.SelectionReport:     {loadReport, loadInterview},
	stage.Offer:               {loadOffers},
	stage.SanctionCheck:       {loadSanction, loadSelected},
	stage.BackgroundCheck:     {loadBackground, loadSelected},
	stage.Contract:            {loadContract, loadSelected},
}

// load builds the snapshot of the case for stage s
func (e *Engine) load(ctx context.Context, c *entity.RecruitmentCase, s stage.Stage) (*stage.Snapshot, error) {
	snap := &stage.Snapshot{Case: c}
	for _, fn := range loaders[s] {
		if err := fn(ctx, e, snap); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", s, err)
		}
	}
	return snap, nil
}

func loadTOR(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.TOR, err = latest(ctx, e.stores.TORs, snap.Case.ID)
	return err
}

func loadSRF(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.SRF, err = latest(ctx, e.stores.SRFs, snap.Case.ID)
	return err
}

func loadVacancies(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.Vacancies, err = byCase(ctx, e.stores.Vacancies, snap.Case.ID)
	return err
}

func loadApplications(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.Applications, err = byCase(ctx, e.stores.Applications, snap.Case.ID)
	return err
}

func loadCommittee(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	committee, err := latest(ctx, e.stores.Committees, snap.Case.ID)
	if err != nil || committee == nil {
		return err
	}
	snap.Committee = committee
	if snap.Members, err = byParent(ctx, e.stores.Members, committee.ID); err != nil {
		return err
	}
	snap.Declarations, err = byCase(ctx, e.stores.Declarations, snap.Case.ID)
	return err
}

func loadLonglist(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	rec, err := latest(ctx, e.stores.LonglistingRecords, snap.Case.ID)
	if err != nil || rec == nil {
		return err
	}
	cands, err := byParent(ctx, e.stores.LonglistingCandidates, rec.ID)
	if err != nil {
		return err
	}
	snap.Longlist = stage.NewLonglistView(rec, cands)
	return nil
}

func loadShortlist(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	rec, err := latest(ctx, e.stores.ShortlistingRecords, snap.Case.ID)
	if err != nil || rec == nil {
		return err
	}
	cands, err := byParent(ctx, e.stores.ShortlistCandidates, rec.ID)
	if err != nil {
		return err
	}
	snap.Shortlist = stage.NewShortlistView(rec, cands)
	return nil
}

func loadTest(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	test, err := latest(ctx, e.stores.WrittenTests, snap.Case.ID)
	if err != nil || test == nil {
		return err
	}
	cands, err := byParent(ctx, e.stores.TestCandidates, test.ID)
	if err != nil {
		return err
	}
	snap.Test = stage.NewTestView(test, cands)
	return nil
}

func loadInterview(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	interview, err := latest(ctx, e.stores.Interviews, snap.Case.ID)
	if err != nil || interview == nil {
		return err
	}
	view := &stage.InterviewView{Interview: interview}
	if view.Candidates, err = byParent(ctx, e.stores.InterviewCandidates, interview.ID); err != nil {
		return err
	}
	if view.Evaluations, err = byParent(ctx, e.stores.Evaluations, interview.ID); err != nil {
		return err
	}
	if view.Results, err = byParent(ctx, e.stores.Results, interview.ID); err != nil {
		return err
	}
	sortByRank(view.Results)
	snap.Interview = view
	return nil
}

func loadReport(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.Report, err = latest(ctx, e.stores.Reports, snap.Case.ID)
	return err
}

func loadOffers(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.Offers, err = byCase(ctx, e.stores.Offers, snap.Case.ID)
	return err
}

func loadSanction(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	snap.Sanction, err = latest(ctx, e.stores.SanctionChecks, snap.Case.ID)
	return err
}

// loadSelected loads the application the sanction check screened
func loadSelected(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	check := snap.Sanction
	if check == nil {
		var err error
		if check, err = latest(ctx, e.stores.SanctionChecks, snap.Case.ID); err != nil || check == nil {
			return err
		}
	}
	app, err := e.stores.Applications.GetByID(ctx, check.ApplicationID)
	if err != nil {
		return err
	}
	snap.Selected = app
	return nil
}

func loadBackground(ctx context.Context, e *Engine, snap *stage.Snapshot) error {
	bg, err := latest(ctx, e.stores.BackgroundChecks, snap.Case.ID)
	if err != nil || bg == nil {
		return err
	}
	snap.Background = bg
	snap.References, err = byParent(ctx, e.stores.References, bg.ID)
	return err
}

func loadContract(ctx context.Context, e *Engine, snap *stage.Snapshot) (err error) {
	if snap.Contract, err = latest(ctx, e.stores.Contracts, snap.Case.ID); err != nil {
		return err
	}
	snap.Checklist, err = byCase(ctx, e.stores.Checklist, snap.Case.ID)
	return err
}

// sortByRank orders results by rank; results never ranked keep their order at the end
func sortByRank(results []*entity.InterviewResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i].Rank, results[j].Rank
		if ri == 0 || rj == 0 {
			return ri != 0 && rj == 0
		}
		return ri < rj
	})
}
