package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/funnel"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	"github.com/garyjia/recruitment-engine/pkg/utils"
)

// VacancyInput describes one announcement channel
type VacancyInput struct {
	Channel     string     `json:"channel"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ClosingDate *time.Time `json:"closing_date"`
}

// CreateVacancy drafts a vacancy announcement
func (e *Engine) CreateVacancy(ctx context.Context, caseID int64, in VacancyInput, actor string) (*entity.Vacancy, error) {
	if err := required("channel", in.Channel); err != nil {
		return nil, err
	}
	if err := required("title", in.Title); err != nil {
		return nil, err
	}

	var v *entity.Vacancy
	err := e.mutate(ctx, caseID, "vacancy.create", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.VacancyAnnouncement); err != nil {
			return err
		}
		v = &entity.Vacancy{
			CaseID:      tx.c.ID,
			Channel:     in.Channel,
			Title:       in.Title,
			Description: in.Description,
			Status:      entity.VacancyStatusDraft,
			ClosingDate: in.ClosingDate,
		}
		if err := e.stores.Vacancies.Create(ctx, v); err != nil {
			return err
		}
		return tx.record(ctx, v, "create", "", string(v.Status), v.Channel)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// PublishVacancy publishes a drafted announcement
func (e *Engine) PublishVacancy(ctx context.Context, caseID, vacancyID int64, actor string) (*entity.Vacancy, error) {
	var v *entity.Vacancy
	err := e.mutate(ctx, caseID, "vacancy.publish", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.VacancyAnnouncement); err != nil {
			return err
		}
		existing, err := owned(ctx, e.stores.Vacancies, "vacancy", vacancyID, tx.c.ID)
		if err != nil {
			return err
		}
		if existing.Status == entity.VacancyStatusPublished {
			return apperror.Precondition(tx.action, "vacancy is already published")
		}

		v, err = e.stores.Vacancies.Update(ctx, existing.ID, func(v *entity.Vacancy) error {
			v.Status = entity.VacancyStatusPublished
			v.PublishedAt = e.stamp()
			return nil
		})
		if err != nil {
			return err
		}
		return tx.record(ctx, v, "publish", string(entity.VacancyStatusDraft), string(v.Status), "")
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CandidateInput is a person's identity
type CandidateInput struct {
	FullName   string `json:"full_name"`
	FatherName string `json:"father_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
}

func (in CandidateInput) validate() error {
	if err := required("full_name", in.FullName); err != nil {
		return err
	}
	if err := required("email", in.Email); err != nil {
		return err
	}
	if err := utils.ValidateEmail(strings.TrimSpace(in.Email)); err != nil {
		return apperror.Validation("email", "%v", err)
	}
	return nil
}

func (in CandidateInput) apply(c *entity.Candidate) {
	c.FullName = utils.SanitizeString(in.FullName)
	c.FatherName = utils.SanitizeString(in.FatherName)
	c.Email = strings.ToLower(strings.TrimSpace(in.Email))
	c.Phone = in.Phone
	c.NationalID = in.NationalID
}

// RegisterCandidate records a new person. Emails are unique.
func (e *Engine) RegisterCandidate(ctx context.Context, in CandidateInput) (*entity.Candidate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &entity.Candidate{}
	in.apply(c)
	err := e.bounded(ctx, "candidate.register", func(ctx context.Context) error {
		return e.stores.Candidates.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("Candidate registered", "candidate_id", c.ID)
	return c, nil
}

// UpdateCandidate replaces a candidate's identity details
func (e *Engine) UpdateCandidate(ctx context.Context, candidateID int64, in CandidateInput) (*entity.Candidate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var c *entity.Candidate
	err := e.bounded(ctx, "candidate.update", func(ctx context.Context) error {
		var err error
		c, err = e.stores.Candidates.Update(ctx, candidateID, func(c *entity.Candidate) error {
			in.apply(c)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCandidate returns a candidate
func (e *Engine) GetCandidate(ctx context.Context, candidateID int64) (*entity.Candidate, error) {
	var c *entity.Candidate
	err := e.bounded(ctx, "candidate.get", func(ctx context.Context) error {
		var err error
		c, err = mustGet(ctx, e.stores.Candidates, "candidate", candidateID)
		return err
	})
	return c, err
}

// SubmitApplication enters a candidate into the case. A candidate applies
// at most once per case.
func (e *Engine) SubmitApplication(ctx context.Context, caseID, candidateID int64, actor string) (*entity.Application, error) {
	var app *entity.Application
	err := e.mutate(ctx, caseID, "application.submit", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Applications); err != nil {
			return err
		}
		if _, err := mustGet(ctx, e.stores.Candidates, "candidate", candidateID); err != nil {
			return err
		}

		app = &entity.Application{
			CaseID:      tx.c.ID,
			CandidateID: candidateID,
			Status:      entity.ApplicationReceived,
			ReceivedAt:  e.now().UTC(),
		}
		if err := e.stores.Applications.Create(ctx, app); err != nil {
			return err
		}
		if err := tx.record(ctx, app, "create", "", string(app.Status), ""); err != nil {
			return err
		}
		tx.emit(event.TypeApplicationUpdated, map[string]interface{}{
			"application_id": app.ID,
			"status":         string(app.Status),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// RejectApplication closes an application at any point after it was received.
// A live offer to the candidate is withdrawn.
func (e *Engine) RejectApplication(ctx context.Context, caseID, applicationID int64, actor, reason string) (*entity.Application, error) {
	return e.closeApplication(ctx, caseID, applicationID, "application.reject", actor, reason, e.funnel.Reject)
}

// WithdrawApplication records that the candidate left the process
func (e *Engine) WithdrawApplication(ctx context.Context, caseID, applicationID int64, actor, reason string) (*entity.Application, error) {
	return e.closeApplication(ctx, caseID, applicationID, "application.withdraw", actor, reason, e.funnel.Withdraw)
}

type closeFunc func(ctx context.Context, id int64, actor, reason string) (bool, error)

func (e *Engine) closeApplication(ctx context.Context, caseID, applicationID int64, action, actor, reason string, closeFn closeFunc) (*entity.Application, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}

	var app *entity.Application
	err := e.mutate(ctx, caseID, action, actor, func(ctx context.Context, tx *caseTx) error {
		if tx.c.CurrentStep < int(stage.Applications) {
			return apperror.Precondition(tx.action, fmt.Sprintf("stage not reached: case is at %s", stage.Stage(tx.c.CurrentStep)))
		}
		if _, err := owned(ctx, e.stores.Applications, "application", applicationID, tx.c.ID); err != nil {
			return err
		}

		changed, err := closeFn(ctx, applicationID, actor, reason)
		if err != nil {
			return err
		}
		app, err = e.stores.Applications.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		tx.emit(event.TypeApplicationUpdated, map[string]interface{}{
			"application_id": app.ID,
			"status":         string(app.Status),
		})
		if err := e.unrank(ctx, tx, app.ID); err != nil {
			return err
		}
		return e.withdrawOffers(ctx, tx, app.ID, reason)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Applications lists the applications of a case
func (e *Engine) Applications(ctx context.Context, caseID int64) ([]*entity.Application, error) {
	var apps []*entity.Application
	err := e.bounded(ctx, "application.list", func(ctx context.Context) error {
		if _, err := mustGet(ctx, e.stores.Cases, "recruitment case", caseID); err != nil {
			return err
		}
		var err error
		apps, err = byCase(ctx, e.stores.Applications, caseID)
		return err
	})
	return apps, err
}

// activeApplication loads an application of the case that is still competing
func (tx *caseTx) activeApplication(ctx context.Context, applicationID int64) (*entity.Application, error) {
	app, err := owned(ctx, tx.e.stores.Applications, "application", applicationID, tx.c.ID)
	if err != nil {
		return nil, err
	}
	if !funnel.IsActive(app.Status) {
		return nil, apperror.Precondition(tx.action, fmt.Sprintf("application %d is %s", app.ID, app.Status))
	}
	return app, nil
}
