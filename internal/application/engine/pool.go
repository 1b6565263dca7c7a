package engine

import (
	"context"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/scoring"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// upsert updates the record stored under a unique ref or creates it
func upsert[E any, P recordPtr[E]](ctx context.Context, store port.Store[P], ref string, fresh func() P, fill func(P) error) (P, bool, error) {
	existing, err := store.GetByIndex(ctx, entity.IndexRef, ref)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		rec, err := store.Update(ctx, existing[0].GetID(), fill)
		return rec, false, err
	}

	rec := fresh()
	if err := fill(rec); err != nil {
		return nil, false, err
	}
	if err := store.Create(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// LonglistInput is the committee's screening of one application
type LonglistInput struct {
	Criteria     entity.LonglistingCriteria `json:"criteria"`
	IsLonglisted bool                       `json:"is_longlisted"`
	Remarks      string                     `json:"remarks"`
}

// RecordLonglisting stores the criteria and the longlisting judgment for an
// application, opening the longlisting record on first use. The judgment is
// not derived from the criteria.
func (e *Engine) RecordLonglisting(ctx context.Context, caseID, applicationID int64, in LonglistInput, actor string) (*stage.LonglistRow, error) {
	var row *stage.LonglistRow
	err := e.mutate(ctx, caseID, "longlisting.record", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Longlisting); err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, applicationID)
		if err != nil {
			return err
		}

		rec, _, err := upsert(ctx, e.stores.LonglistingRecords, entity.FormatID(tx.c.ID),
			func() *entity.LonglistingRecord { return &entity.LonglistingRecord{CaseID: tx.c.ID} },
			func(r *entity.LonglistingRecord) error {
				if r.ConductedOn.IsZero() {
					r.ConductedOn = e.now().UTC()
				}
				return nil
			})
		if err != nil {
			return err
		}

		cand, created, err := upsert(ctx, e.stores.LonglistingCandidates, entity.CompositeRef(rec.ID, app.ID),
			func() *entity.LonglistingCandidate {
				return &entity.LonglistingCandidate{RecordID: rec.ID, CaseID: tx.c.ID, ApplicationID: app.ID}
			},
			func(c *entity.LonglistingCandidate) error {
				c.Criteria = in.Criteria
				c.IsLonglisted = in.IsLonglisted
				c.Remarks = in.Remarks
				return nil
			})
		if err != nil {
			return err
		}

		row = &stage.LonglistRow{LonglistingCandidate: cand, CriteriaMet: cand.Criteria.Met()}
		return tx.record(ctx, cand, actionName(created), "", longlistedLabel(cand.IsLonglisted), in.Remarks)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func longlistedLabel(v bool) string {
	if v {
		return "longlisted"
	}
	return "not_longlisted"
}

// ShortlistConfig sets the weights and pass mark of the shortlisting.
// Nil fields keep the current value or the configured default.
type ShortlistConfig struct {
	Weights      *scoring.ShortlistWeights `json:"weights"`
	PassingScore *float64                  `json:"passing_score"`
}

// ConfigureShortlisting creates or edits the shortlisting record. Totals
// and flags of scored candidates follow the new settings on the next read.
func (e *Engine) ConfigureShortlisting(ctx context.Context, caseID int64, in ShortlistConfig, actor string) (*entity.ShortlistingRecord, error) {
	if in.Weights != nil {
		if err := in.Weights.Validate(); err != nil {
			return nil, err
		}
	}
	if in.PassingScore != nil {
		if err := scoring.ValidatePassingScore("passing_score", *in.PassingScore); err != nil {
			return nil, err
		}
	}

	var rec *entity.ShortlistingRecord
	err := e.mutate(ctx, caseID, "shortlisting.configure", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Shortlisting); err != nil {
			return err
		}
		var err error
		rec, err = e.shortlistRecord(ctx, tx, func(r *entity.ShortlistingRecord) error {
			if in.Weights != nil {
				r.AcademicWeight = in.Weights.Academic
				r.ExperienceWeight = in.Weights.Experience
				r.OtherWeight = in.Weights.Other
			}
			if in.PassingScore != nil {
				r.PassingScore = *in.PassingScore
			}
			return nil
		})
		if err != nil {
			return err
		}
		return tx.record(ctx, rec, "configure", "", "", "")
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// shortlistRecord loads or creates the case's shortlisting record, seeded
// with the configured defaults, and applies fill
func (e *Engine) shortlistRecord(ctx context.Context, tx *caseTx, fill func(*entity.ShortlistingRecord) error) (*entity.ShortlistingRecord, error) {
	rec, _, err := upsert(ctx, e.stores.ShortlistingRecords, entity.FormatID(tx.c.ID),
		func() *entity.ShortlistingRecord {
			w := e.cfg.ShortlistWeights
			return &entity.ShortlistingRecord{
				CaseID:           tx.c.ID,
				AcademicWeight:   w.Academic,
				ExperienceWeight: w.Experience,
				OtherWeight:      w.Other,
				PassingScore:     e.cfg.ShortlistPassingScore,
			}
		}, fill)
	return rec, err
}

// ShortlistScores are the three raw scores of a candidate
type ShortlistScores struct {
	Academic   float64 `json:"academic_score"`
	Experience float64 `json:"experience_score"`
	Other      float64 `json:"other_score"`
}

// ScoreShortlistCandidate stores an application's scores, clamped to the
// score range, and returns the recomputed outcome
func (e *Engine) ScoreShortlistCandidate(ctx context.Context, caseID, applicationID int64, in ShortlistScores, actor string) (*stage.ShortlistRow, error) {
	var row *stage.ShortlistRow
	err := e.mutate(ctx, caseID, "shortlisting.score", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Shortlisting); err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		rec, err := e.shortlistRecord(ctx, tx, func(*entity.ShortlistingRecord) error { return nil })
		if err != nil {
			return err
		}

		cand, created, err := upsert(ctx, e.stores.ShortlistCandidates, entity.CompositeRef(rec.ID, app.ID),
			func() *entity.ShortlistingCandidate {
				return &entity.ShortlistingCandidate{RecordID: rec.ID, CaseID: tx.c.ID, ApplicationID: app.ID}
			},
			func(c *entity.ShortlistingCandidate) error {
				c.AcademicScore = scoring.Clamp(in.Academic, 0, scoring.MaxScore)
				c.ExperienceScore = scoring.Clamp(in.Experience, 0, scoring.MaxScore)
				c.OtherScore = scoring.Clamp(in.Other, 0, scoring.MaxScore)
				return nil
			})
		if err != nil {
			return err
		}

		row = &stage.ShortlistRow{ShortlistingCandidate: cand, ShortlistOutcome: scoring.Shortlist(rec, cand)}
		return tx.record(ctx, cand, actionName(created), "", "", "")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// TestInput schedules the written test. A nil PassingMarks keeps the
// current value or the configured default.
type TestInput struct {
	TestDate     time.Time `json:"test_date"`
	TotalMarks   float64   `json:"total_marks"`
	PassingMarks *float64  `json:"passing_marks"`
}

// ScheduleWrittenTest creates or edits the written test of the case
func (e *Engine) ScheduleWrittenTest(ctx context.Context, caseID int64, in TestInput, actor string) (*entity.WrittenTest, error) {
	var test *entity.WrittenTest
	err := e.mutate(ctx, caseID, "written_test.schedule", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.WrittenTest); err != nil {
			return err
		}

		var created bool
		var err error
		test, created, err = upsert(ctx, e.stores.WrittenTests, entity.FormatID(tx.c.ID),
			func() *entity.WrittenTest {
				return &entity.WrittenTest{CaseID: tx.c.ID, PassingMarks: e.cfg.TestPassingMarks}
			},
			func(t *entity.WrittenTest) error {
				t.TestDate = in.TestDate
				t.TotalMarks = in.TotalMarks
				if in.PassingMarks != nil {
					t.PassingMarks = *in.PassingMarks
				}
				return scoring.ValidateWrittenTest(t.TotalMarks, t.PassingMarks)
			})
		if err != nil {
			return err
		}
		return tx.record(ctx, test, actionName(created), "", "", "")
	})
	if err != nil {
		return nil, err
	}
	return test, nil
}

// writtenTest loads the case's written test or fails when not scheduled
func (tx *caseTx) writtenTest(ctx context.Context) (*entity.WrittenTest, error) {
	test, err := latest(ctx, tx.e.stores.WrittenTests, tx.c.ID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, apperror.Precondition(tx.action, "written test has not been scheduled")
	}
	return test, nil
}

// RecordTestAttendance marks whether the candidate sat the test.
// Marking absence clears any recorded marks.
func (e *Engine) RecordTestAttendance(ctx context.Context, caseID, applicationID int64, attended bool, actor string) (*stage.TestRow, error) {
	var row *stage.TestRow
	err := e.mutate(ctx, caseID, "written_test.attendance", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.WrittenTest); err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		test, err := tx.writtenTest(ctx)
		if err != nil {
			return err
		}

		cand, created, err := upsert(ctx, e.stores.TestCandidates, entity.CompositeRef(test.ID, app.ID),
			func() *entity.WrittenTestCandidate {
				return &entity.WrittenTestCandidate{TestID: test.ID, CaseID: tx.c.ID, ApplicationID: app.ID}
			},
			func(c *entity.WrittenTestCandidate) error {
				c.Attended = attended
				if !attended {
					c.MarksObtained = nil
				}
				return nil
			})
		if err != nil {
			return err
		}

		row = &stage.TestRow{WrittenTestCandidate: cand, TestOutcome: scoring.WrittenTest(test, cand)}
		return tx.record(ctx, cand, actionName(created), "", attendanceLabel(attended), "")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func attendanceLabel(v bool) string {
	if v {
		return "attended"
	}
	return "absent"
}

// RecordTestMarks stores the marks of a candidate who attended, clamped to
// the test's total marks
func (e *Engine) RecordTestMarks(ctx context.Context, caseID, applicationID int64, marks float64, actor string) (*stage.TestRow, error) {
	var row *stage.TestRow
	err := e.mutate(ctx, caseID, "written_test.marks", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.WrittenTest); err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		test, err := tx.writtenTest(ctx)
		if err != nil {
			return err
		}

		existing, err := e.stores.TestCandidates.GetByIndex(ctx, entity.IndexRef, entity.CompositeRef(test.ID, app.ID))
		if err != nil {
			return err
		}
		if len(existing) == 0 || !existing[0].Attended {
			return apperror.Precondition(tx.action, "marks can only be recorded for a candidate who attended the written test")
		}

		cand, err := e.stores.TestCandidates.Update(ctx, existing[0].ID, func(c *entity.WrittenTestCandidate) error {
			v := scoring.Clamp(marks, 0, test.TotalMarks)
			c.MarksObtained = &v
			return nil
		})
		if err != nil {
			return err
		}

		row = &stage.TestRow{WrittenTestCandidate: cand, TestOutcome: scoring.WrittenTest(test, cand)}
		return tx.record(ctx, cand, "marks", "", "", "")
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func actionName(created bool) string {
	if created {
		return "create"
	}
	return "edit"
}
