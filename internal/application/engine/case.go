package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/recruitment-engine/internal/application/funnel"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
)

// CaseInput opens a recruitment case
type CaseInput struct {
	PositionTitle  string `json:"position_title"`
	Department     string `json:"department"`
	HiringApproach string `json:"hiring_approach"`
	ContractType   string `json:"contract_type"`
}

var hiringApproaches = map[string]bool{
	entity.HiringApproachCompetitive: true,
	entity.HiringApproachHeadhunting: true,
	entity.HiringApproachInternal:    true,
}

var contractTypes = map[string]bool{
	entity.ContractTypeFixedTerm:  true,
	entity.ContractTypeOpenEnded:  true,
	entity.ContractTypeConsultant: true,
}

// CreateCase opens a case at the TOR stage
func (e *Engine) CreateCase(ctx context.Context, in CaseInput, actor string) (*entity.RecruitmentCase, error) {
	if err := required("position_title", in.PositionTitle); err != nil {
		return nil, err
	}
	if in.HiringApproach == "" {
		in.HiringApproach = entity.HiringApproachCompetitive
	}
	if !hiringApproaches[in.HiringApproach] {
		return nil, apperror.Validation("hiring_approach", "unknown hiring approach %q", in.HiringApproach)
	}
	if in.ContractType == "" {
		in.ContractType = entity.ContractTypeFixedTerm
	}
	if !contractTypes[in.ContractType] {
		return nil, apperror.Validation("contract_type", "unknown contract type %q", in.ContractType)
	}

	c := &entity.RecruitmentCase{
		CurrentStep:    int(stage.First),
		Status:         entity.CaseStatusDraft,
		PositionTitle:  in.PositionTitle,
		Department:     in.Department,
		HiringApproach: in.HiringApproach,
		ContractType:   in.ContractType,
		CreatedBy:      actor,
	}

	err := e.bounded(ctx, "case.create", func(ctx context.Context) error {
		return e.stores.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
			code, err := e.stores.Sequences.Next(txCtx, SequenceCase)
			if err != nil {
				return fmt.Errorf("failed to allocate case code: %w", err)
			}
			c.Code = code

			if err := e.stores.Cases.Create(txCtx, c); err != nil {
				return err
			}

			return e.stores.History.Create(txCtx, &entity.HistoryEntry{
				CaseID:    c.ID,
				Entity:    c.Kind(),
				EntityID:  c.ID,
				Action:    "create",
				NewStatus: string(c.Status),
				Actor:     actor,
			})
		})
	})
	if err != nil {
		e.logger.Error("Failed to create recruitment case", "position_title", in.PositionTitle, "error", err)
		return nil, err
	}

	e.logger.Info("Recruitment case created", "case_id", c.ID, "code", c.Code)
	e.publish(ctx, []*event.Event{
		event.NewEvent(event.TypeCaseCreated, c.ID, map[string]interface{}{
			"code":           c.Code,
			"position_title": c.PositionTitle,
		}).ByActor(actor),
	})
	return c, nil
}

// GetCase returns a case
func (e *Engine) GetCase(ctx context.Context, caseID int64) (*entity.RecruitmentCase, error) {
	var c *entity.RecruitmentCase
	err := e.bounded(ctx, "case.get", func(ctx context.Context) error {
		var err error
		c, err = mustGet(ctx, e.stores.Cases, "recruitment case", caseID)
		return err
	})
	return c, err
}

// ListCases returns every case ordered by ID
func (e *Engine) ListCases(ctx context.Context) ([]*entity.RecruitmentCase, error) {
	var cases []*entity.RecruitmentCase
	err := e.bounded(ctx, "case.list", func(ctx context.Context) error {
		var err error
		cases, err = e.stores.Cases.GetAll(ctx)
		return err
	})
	return cases, err
}

// Advance moves the case past its current stage when the stage's
// precondition holds. At the last stage it completes the case instead.
// Leaving a screening stage settles the candidate funnel in the same transaction.
func (e *Engine) Advance(ctx context.Context, caseID int64, actor string) (*entity.RecruitmentCase, error) {
	var c *entity.RecruitmentCase
	err := e.mutate(ctx, caseID, "case.advance", actor, func(ctx context.Context, tx *caseTx) error {
		current := stage.Stage(tx.c.CurrentStep)

		snap, err := e.load(ctx, tx.c, current)
		if err != nil {
			return err
		}
		if unmet := stage.Unmet(current, snap, e.cfg.Rules); len(unmet) > 0 {
			return apperror.Precondition(fmt.Sprintf("advance from %s", current), unmet...)
		}

		if err := e.settleFunnel(ctx, tx, current, snap); err != nil {
			return err
		}

		if current == stage.Last {
			if err := tx.complete(ctx); err != nil {
				return err
			}
			c = tx.c
			return nil
		}

		previous := tx.c.Status
		next := current.Next()
		if err := tx.saveCase(ctx, func(rc *entity.RecruitmentCase) error {
			rc.CurrentStep = int(next)
			rc.Status = next.Status()
			return nil
		}); err != nil {
			return err
		}
		if err := tx.record(ctx, tx.c, "advance", string(previous), string(tx.c.Status), fmt.Sprintf("%s -> %s", current, next)); err != nil {
			return err
		}

		tx.emit(event.TypeCaseAdvanced, map[string]interface{}{
			"from_step": int(current),
			"to_step":   int(next),
			"status":    string(tx.c.Status),
		})
		c = tx.c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// complete closes the case as completed at the last stage
func (tx *caseTx) complete(ctx context.Context) error {
	previous := tx.c.Status
	if err := tx.saveCase(ctx, func(rc *entity.RecruitmentCase) error {
		rc.CurrentStep = int(stage.Last)
		rc.Status = entity.CaseStatusCompleted
		rc.CompletedAt = tx.e.stamp()
		return nil
	}); err != nil {
		return err
	}
	if err := tx.record(ctx, tx.c, "complete", string(previous), string(tx.c.Status), ""); err != nil {
		return err
	}
	tx.emit(event.TypeCaseCompleted, map[string]interface{}{"code": tx.c.Code})
	return nil
}

// settleFunnel promotes the applications that passed the stage being left
// and rejects the other active ones. Leaving the interview only promotes.
func (e *Engine) settleFunnel(ctx context.Context, tx *caseTx, s stage.Stage, snap *stage.Snapshot) error {
	passed := make(map[int64]bool)
	var target entity.ApplicationStatus
	rejectOthers := true

	switch s {
	case stage.Longlisting:
		target = entity.ApplicationLonglisted
		for _, row := range snap.Longlist.Candidates {
			if row.IsLonglisted {
				passed[row.ApplicationID] = true
			}
		}
	case stage.Shortlisting:
		target = entity.ApplicationShortlisted
		for _, row := range snap.Shortlist.Candidates {
			if row.IsShortlisted {
				passed[row.ApplicationID] = true
			}
		}
	case stage.WrittenTest:
		target = entity.ApplicationTested
		for _, row := range snap.Test.Candidates {
			if row.IsPassed {
				passed[row.ApplicationID] = true
			}
		}
	case stage.Interview:
		target = entity.ApplicationInterviewed
		rejectOthers = false
		for _, r := range snap.Interview.Results {
			passed[r.ApplicationID] = true
		}
	default:
		return nil
	}

	apps, err := byCase(ctx, e.stores.Applications, tx.c.ID)
	if err != nil {
		return err
	}

	for _, app := range apps {
		var changed bool
		switch {
		case passed[app.ID]:
			changed, err = e.funnel.PromoteApplication(ctx, app.ID, target, tx.actor)
		case rejectOthers && funnel.IsActive(app.Status):
			changed, err = e.funnel.Reject(ctx, app.ID, tx.actor, fmt.Sprintf("not %s", target))
		}
		if err != nil {
			return err
		}
		if changed {
			tx.emit(event.TypeApplicationUpdated, map[string]interface{}{
				"application_id": app.ID,
				"stage":          s.Name(),
			})
		}
	}
	return nil
}

// CancelCase closes the case without completing it
func (e *Engine) CancelCase(ctx context.Context, caseID int64, actor, reason string) (*entity.RecruitmentCase, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}

	var c *entity.RecruitmentCase
	err := e.mutate(ctx, caseID, "case.cancel", actor, func(ctx context.Context, tx *caseTx) error {
		previous := tx.c.Status
		if err := tx.saveCase(ctx, func(rc *entity.RecruitmentCase) error {
			rc.Status = entity.CaseStatusCancelled
			rc.CancelReason = reason
			return nil
		}); err != nil {
			return err
		}
		if err := tx.record(ctx, tx.c, "cancel", string(previous), string(tx.c.Status), reason); err != nil {
			return err
		}
		tx.emit(event.TypeCaseCancelled, map[string]interface{}{"reason": reason})
		c = tx.c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GrantOverride opens a past stage for editing without moving the case.
// Only one grant per stage can be active.
func (e *Engine) GrantOverride(ctx context.Context, caseID int64, step int, actor, reason string) (*entity.EditOverride, error) {
	if err := required("actor", actor); err != nil {
		return nil, err
	}
	if err := required("reason", reason); err != nil {
		return nil, err
	}
	s, err := stage.Parse(step)
	if err != nil {
		return nil, apperror.Validation("stage", "%v", err)
	}

	var grant *entity.EditOverride
	err = e.mutate(ctx, caseID, "override.grant", actor, func(ctx context.Context, tx *caseTx) error {
		if int(s) >= tx.c.CurrentStep {
			return apperror.Precondition(tx.action, fmt.Sprintf("stage %s has not been passed", s))
		}

		existing, err := byCase(ctx, e.stores.Overrides, tx.c.ID)
		if err != nil {
			return err
		}
		for _, o := range existing {
			if o.IsActive() && o.Stage == int(s) {
				return apperror.Precondition(tx.action, fmt.Sprintf("stage %s already has an active override", s))
			}
		}

		grant = &entity.EditOverride{
			CaseID: tx.c.ID,
			Stage:  int(s),
			Token:  uuid.NewString(),
			Actor:  actor,
			Reason: reason,
		}
		if err := e.stores.Overrides.Create(ctx, grant); err != nil {
			return err
		}
		if err := tx.record(ctx, grant, "override_granted", "", "active", reason); err != nil {
			return err
		}
		tx.emit(event.TypeOverrideGranted, map[string]interface{}{
			"override_id": grant.ID,
			"stage":       s.Name(),
			"token":       grant.Token,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// RevokeOverride closes a previously granted override
func (e *Engine) RevokeOverride(ctx context.Context, caseID, overrideID int64, actor string) (*entity.EditOverride, error) {
	var grant *entity.EditOverride
	err := e.mutate(ctx, caseID, "override.revoke", actor, func(ctx context.Context, tx *caseTx) error {
		o, err := owned(ctx, e.stores.Overrides, "edit override", overrideID, tx.c.ID)
		if err != nil {
			return err
		}
		if !o.IsActive() {
			return apperror.Precondition(tx.action, "override is already revoked")
		}

		grant, err = e.stores.Overrides.Update(ctx, o.ID, func(o *entity.EditOverride) error {
			o.RevokedBy = actor
			o.RevokedAt = e.stamp()
			return nil
		})
		if err != nil {
			return err
		}
		if err := tx.record(ctx, grant, "override_revoked", "active", "revoked", ""); err != nil {
			return err
		}
		tx.emit(event.TypeOverrideRevoked, map[string]interface{}{
			"override_id": grant.ID,
			"stage":       stage.Stage(grant.Stage).Name(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// Overrides lists the edit overrides of a case, revoked ones included
func (e *Engine) Overrides(ctx context.Context, caseID int64) ([]*entity.EditOverride, error) {
	var out []*entity.EditOverride
	err := e.bounded(ctx, "override.list", func(ctx context.Context) error {
		if _, err := mustGet(ctx, e.stores.Cases, "recruitment case", caseID); err != nil {
			return err
		}
		var err error
		out, err = byCase(ctx, e.stores.Overrides, caseID)
		return err
	})
	return out, err
}

// History returns the audit trail of a case in recording order
func (e *Engine) History(ctx context.Context, caseID int64) ([]*entity.HistoryEntry, error) {
	var out []*entity.HistoryEntry
	err := e.bounded(ctx, "case.history", func(ctx context.Context) error {
		if _, err := mustGet(ctx, e.stores.Cases, "recruitment case", caseID); err != nil {
			return err
		}
		var err error
		out, err = byCase(ctx, e.stores.History, caseID)
		return err
	})
	return out, err
}
