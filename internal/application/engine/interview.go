package engine

import (
	"context"
	"time"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/scoring"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// InterviewInput schedules the interview. Nil weights keep the current
// value or the configured default.
type InterviewInput struct {
	ScheduledAt     time.Time `json:"scheduled_at"`
	Venue           string    `json:"venue"`
	PriorWeight     *float64  `json:"prior_weight"`
	InterviewWeight *float64  `json:"interview_weight"`
}

// ScheduleInterview creates or edits the interview round. Changing the
// blend weights marks the ranking stale.
func (e *Engine) ScheduleInterview(ctx context.Context, caseID int64, in InterviewInput, actor string) (*entity.Interview, error) {
	var interview *entity.Interview
	err := e.mutate(ctx, caseID, "interview.schedule", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Interview); err != nil {
			return err
		}

		var created bool
		var err error
		interview, created, err = upsert(ctx, e.stores.Interviews, entity.FormatID(tx.c.ID),
			func() *entity.Interview {
				return &entity.Interview{
					CaseID:          tx.c.ID,
					PriorWeight:     e.cfg.PriorWeight,
					InterviewWeight: e.cfg.InterviewWeight,
				}
			},
			func(i *entity.Interview) error {
				i.ScheduledAt = in.ScheduledAt
				i.Venue = in.Venue
				prior, weight := i.PriorWeight, i.InterviewWeight
				if in.PriorWeight != nil {
					prior = *in.PriorWeight
				}
				if in.InterviewWeight != nil {
					weight = *in.InterviewWeight
				}
				if err := scoring.ValidateBlend(prior, weight); err != nil {
					return err
				}
				if prior != i.PriorWeight || weight != i.InterviewWeight {
					i.RankedAt = nil
				}
				i.PriorWeight, i.InterviewWeight = prior, weight
				return nil
			})
		if err != nil {
			return err
		}
		return tx.record(ctx, interview, actionName(created), "", "", in.Venue)
	})
	if err != nil {
		return nil, err
	}
	return interview, nil
}

// interview loads the case's interview or fails when not scheduled
func (tx *caseTx) interview(ctx context.Context) (*entity.Interview, error) {
	interview, err := latest(ctx, tx.e.stores.Interviews, tx.c.ID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, apperror.Precondition(tx.action, "interview has not been scheduled")
	}
	return interview, nil
}

// InviteToInterview adds an application to the interview round and records
// whether the candidate attended
func (e *Engine) InviteToInterview(ctx context.Context, caseID, applicationID int64, attended bool, actor string) (*entity.InterviewCandidate, error) {
	var cand *entity.InterviewCandidate
	err := e.mutate(ctx, caseID, "interview.invite", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Interview); err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		interview, err := tx.interview(ctx)
		if err != nil {
			return err
		}

		var created, changed bool
		cand, created, err = upsert(ctx, e.stores.InterviewCandidates, entity.CompositeRef(interview.ID, app.ID),
			func() *entity.InterviewCandidate {
				return &entity.InterviewCandidate{InterviewID: interview.ID, CaseID: tx.c.ID, ApplicationID: app.ID}
			},
			func(c *entity.InterviewCandidate) error {
				changed = c.Attended != attended
				c.Attended = attended
				return nil
			})
		if err != nil {
			return err
		}
		if changed {
			if err := e.unrank(ctx, tx, app.ID); err != nil {
				return err
			}
		}
		return tx.record(ctx, cand, actionName(created), "", attendanceLabel(attended), "")
	})
	if err != nil {
		return nil, err
	}
	return cand, nil
}

// EvaluationInput is one evaluator's scoring of one candidate
type EvaluationInput struct {
	EvaluatorID    int64                  `json:"evaluator_id"`
	Scores         entity.DimensionScores `json:"scores"`
	Recommendation entity.Recommendation  `json:"recommendation"`
	Comments       string                 `json:"comments"`
}

func (in EvaluationInput) validate() error {
	if in.EvaluatorID == 0 {
		return apperror.Validation("evaluator_id", "is required")
	}
	if err := scoring.ValidateDimensions(in.Scores); err != nil {
		return err
	}
	if !in.Recommendation.IsValid() {
		return apperror.Validation("recommendation", "unknown recommendation %q", in.Recommendation)
	}
	return nil
}

// RecordEvaluation stores or replaces an evaluator's scoring of an attended
// candidate. The evaluator must sit on the committee. Any change marks the
// ranking stale.
func (e *Engine) RecordEvaluation(ctx context.Context, caseID, applicationID int64, in EvaluationInput, actor string) (*entity.Evaluation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var eval *entity.Evaluation
	err := e.mutate(ctx, caseID, "interview.evaluate", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Interview); err != nil {
			return err
		}
		interview, err := tx.interview(ctx)
		if err != nil {
			return err
		}
		if _, err := owned(ctx, e.stores.Members, "committee member", in.EvaluatorID, tx.c.ID); err != nil {
			return err
		}

		invited, err := e.stores.InterviewCandidates.GetByIndex(ctx, entity.IndexRef, entity.CompositeRef(interview.ID, applicationID))
		if err != nil {
			return err
		}
		if len(invited) == 0 {
			return apperror.Precondition(tx.action, "application is not invited to the interview")
		}
		if !invited[0].Attended {
			return apperror.Precondition(tx.action, "candidate did not attend the interview")
		}

		var created bool
		eval, created, err = upsert(ctx, e.stores.Evaluations, entity.CompositeRef(interview.ID, applicationID, in.EvaluatorID),
			func() *entity.Evaluation {
				return &entity.Evaluation{
					InterviewID:   interview.ID,
					CaseID:        tx.c.ID,
					ApplicationID: applicationID,
					EvaluatorID:   in.EvaluatorID,
				}
			},
			func(ev *entity.Evaluation) error {
				ev.Scores = in.Scores
				ev.Recommendation = in.Recommendation
				ev.Comments = in.Comments
				return nil
			})
		if err != nil {
			return err
		}

		if _, err := e.stores.Interviews.Update(ctx, interview.ID, func(i *entity.Interview) error {
			i.RankedAt = nil
			return nil
		}); err != nil {
			return err
		}
		return tx.record(ctx, eval, actionName(created), "", string(eval.Recommendation), "")
	})
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// RankCandidates computes the final scores of every evaluated application,
// ranks them and stores one result per application. Re-running with
// unchanged inputs yields the same results.
func (e *Engine) RankCandidates(ctx context.Context, interviewID int64, actor string) ([]*entity.InterviewResult, error) {
	var caseID int64
	err := e.bounded(ctx, "interview.rank", func(ctx context.Context) error {
		interview, err := mustGet(ctx, e.stores.Interviews, "interview", interviewID)
		if err != nil {
			return err
		}
		caseID = interview.CaseID
		return nil
	})
	if err != nil {
		return nil, err
	}

	var results []*entity.InterviewResult
	err = e.mutate(ctx, caseID, "interview.rank", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Interview); err != nil {
			return err
		}
		interview, err := owned(ctx, e.stores.Interviews, "interview", interviewID, tx.c.ID)
		if err != nil {
			return err
		}

		evals, err := byParent(ctx, e.stores.Evaluations, interview.ID)
		if err != nil {
			return err
		}
		if len(evals) == 0 {
			return apperror.Precondition(tx.action, "no interview evaluation recorded")
		}

		standings, err := e.standings(ctx, tx.c.ID, interview, evals)
		if err != nil {
			return err
		}
		if len(standings) == 0 {
			return apperror.Precondition(tx.action, "no attending candidate in the running has been evaluated")
		}
		ranked := scoring.Rank(standings)

		results, err = e.storeResults(ctx, tx.c.ID, interview.ID, ranked)
		if err != nil {
			return err
		}

		if _, err := e.stores.Interviews.Update(ctx, interview.ID, func(i *entity.Interview) error {
			i.RankedAt = e.stamp()
			return nil
		}); err != nil {
			return err
		}

		payload := map[string]interface{}{
			"interview_id": interview.ID,
			"candidates":   len(results),
		}
		if len(results) > 0 {
			payload["top_application_id"] = results[0].ApplicationID
			payload["top_recommendation"] = string(results[0].Recommendation)
		}
		tx.emit(event.TypeRankingComputed, payload)
		return tx.record(ctx, interview, "rank", "", "ranked", "")
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// standings gathers the prior and interview scores of every evaluated
// application that attended and is still in the running
func (e *Engine) standings(ctx context.Context, caseID int64, interview *entity.Interview, evals []*entity.Evaluation) ([]scoring.Standing, error) {
	eligible, err := e.rankable(ctx, caseID, interview.ID)
	if err != nil {
		return nil, err
	}

	byApp := make(map[int64][]*entity.Evaluation)
	var order []int64
	for _, ev := range evals {
		if !eligible[ev.ApplicationID] {
			continue
		}
		if _, seen := byApp[ev.ApplicationID]; !seen {
			order = append(order, ev.ApplicationID)
		}
		byApp[ev.ApplicationID] = append(byApp[ev.ApplicationID], ev)
	}

	priors, err := e.priorScores(ctx, caseID)
	if err != nil {
		return nil, err
	}

	standings := make([]scoring.Standing, 0, len(order))
	for _, appID := range order {
		appEvals := byApp[appID]
		interviewScore, _ := scoring.InterviewScore(appEvals)
		p := priors[appID]
		prior := scoring.PriorScore(p.test, p.shortlist)
		standings = append(standings, scoring.Standing{
			ApplicationID:  appID,
			PriorScore:     prior,
			InterviewScore: interviewScore,
			FinalScore:     scoring.FinalScore(prior, interviewScore, interview.PriorWeight, interview.InterviewWeight),
			Positive:       scoring.MajorityPositive(appEvals),
		})
	}
	return standings, nil
}

// rankable returns the applications that attended the interview and were
// neither rejected nor withdrawn
func (e *Engine) rankable(ctx context.Context, caseID, interviewID int64) (map[int64]bool, error) {
	apps, err := byCase(ctx, e.stores.Applications, caseID)
	if err != nil {
		return nil, err
	}
	running := make(map[int64]bool, len(apps))
	for _, app := range apps {
		running[app.ID] = !app.Status.IsDropped()
	}

	invitees, err := byParent(ctx, e.stores.InterviewCandidates, interviewID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(invitees))
	for _, c := range invitees {
		if c.Attended && running[c.ApplicationID] {
			out[c.ApplicationID] = true
		}
	}
	return out, nil
}

// unrank marks the ranking stale when it includes the application
func (e *Engine) unrank(ctx context.Context, tx *caseTx, applicationID int64) error {
	interview, err := latest(ctx, e.stores.Interviews, tx.c.ID)
	if err != nil || interview == nil || interview.RankedAt == nil {
		return err
	}
	results, err := byParent(ctx, e.stores.Results, interview.ID)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.ApplicationID != applicationID {
			continue
		}
		_, err := e.stores.Interviews.Update(ctx, interview.ID, func(i *entity.Interview) error {
			i.RankedAt = nil
			return nil
		})
		return err
	}
	return nil
}

type priorInputs struct {
	test      *float64
	shortlist *float64
}

// priorScores collects the written-test percentage and shortlisting total
// of every application of the case
func (e *Engine) priorScores(ctx context.Context, caseID int64) (map[int64]priorInputs, error) {
	out := make(map[int64]priorInputs)

	if rec, err := latest(ctx, e.stores.ShortlistingRecords, caseID); err != nil {
		return nil, err
	} else if rec != nil {
		cands, err := byParent(ctx, e.stores.ShortlistCandidates, rec.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			total := scoring.Shortlist(rec, c).TotalScore
			p := out[c.ApplicationID]
			p.shortlist = &total
			out[c.ApplicationID] = p
		}
	}

	if test, err := latest(ctx, e.stores.WrittenTests, caseID); err != nil {
		return nil, err
	} else if test != nil {
		cands, err := byParent(ctx, e.stores.TestCandidates, test.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			outcome := scoring.WrittenTest(test, c)
			if outcome.Percentage == nil {
				continue
			}
			p := out[c.ApplicationID]
			p.test = outcome.Percentage
			out[c.ApplicationID] = p
		}
	}

	return out, nil
}

// storeResults upserts one result per ranked application and removes results
// of applications that are no longer ranked. Results come back in rank order.
func (e *Engine) storeResults(ctx context.Context, caseID, interviewID int64, ranked []scoring.Ranked) ([]*entity.InterviewResult, error) {
	keep := make(map[int64]bool, len(ranked))
	results := make([]*entity.InterviewResult, 0, len(ranked))

	for _, r := range ranked {
		keep[r.ApplicationID] = true
		res, _, err := upsert(ctx, e.stores.Results, entity.CompositeRef(interviewID, r.ApplicationID),
			func() *entity.InterviewResult {
				return &entity.InterviewResult{InterviewID: interviewID, CaseID: caseID, ApplicationID: r.ApplicationID}
			},
			func(res *entity.InterviewResult) error {
				res.PriorScore = r.PriorScore
				res.InterviewScore = r.InterviewScore
				res.FinalScore = r.FinalScore
				res.Rank = r.Rank
				res.Recommendation = r.Recommendation
				return nil
			})
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	existing, err := byParent(ctx, e.stores.Results, interviewID)
	if err != nil {
		return nil, err
	}
	for _, res := range existing {
		if !keep[res.ApplicationID] {
			if _, err := e.stores.Results.Delete(ctx, res.ID); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

// Results returns the stored ranking of an interview in rank order
func (e *Engine) Results(ctx context.Context, interviewID int64) ([]*entity.InterviewResult, error) {
	var results []*entity.InterviewResult
	err := e.bounded(ctx, "interview.results", func(ctx context.Context) error {
		if _, err := mustGet(ctx, e.stores.Interviews, "interview", interviewID); err != nil {
			return err
		}
		var err error
		results, err = byParent(ctx, e.stores.Results, interviewID)
		sortByRank(results)
		return err
	})
	return results, err
}
