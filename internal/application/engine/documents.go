package engine

import (
	"context"
	"fmt"

	"github.com/garyjia/recruitment-engine/internal/application/approval"
	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	domainwf "github.com/garyjia/recruitment-engine/internal/domain/workflow"
	"github.com/garyjia/recruitment-engine/pkg/utils"
)

// fire drives a document through its state machine inside the action's transaction
func fire[T entity.Document](ctx context.Context, tx *caseTx, store port.Store[T], id int64, trigger domainwf.Trigger, note string, machine func(T) domainwf.StateMachine, apply func(T) error) (T, error) {
	return approval.Fire(ctx, tx.e.approvals, store, id, approval.Transition[T]{
		Trigger: trigger,
		Actor:   tx.actor,
		Note:    note,
		Machine: machine,
		Apply: func(doc T, _, _ domainwf.State) error {
			if apply == nil {
				return nil
			}
			return apply(doc)
		},
		Emit: tx.queue,
	})
}

// editableState refuses content edits outside draft and rejected
func editableState(action, kind string, s domainwf.State) error {
	if s == domainwf.StateDraft || s == domainwf.StateRejected {
		return nil
	}
	return apperror.Precondition(action, fmt.Sprintf("%s is %s; only a draft or rejected %s can be edited", kind, s, kind))
}

// TORInput is the editable content of a Terms of Reference
type TORInput struct {
	PositionTitle    string `json:"position_title"`
	Purpose          string `json:"purpose"`
	Responsibilities string `json:"responsibilities"`
	Qualifications   string `json:"qualifications"`
	Grade            string `json:"grade"`
	DutyStation      string `json:"duty_station"`
}

// SaveTOR drafts the TOR or edits a draft or rejected one
func (e *Engine) SaveTOR(ctx context.Context, caseID int64, in TORInput, actor string) (*entity.TOR, error) {
	if err := required("position_title", in.PositionTitle); err != nil {
		return nil, err
	}
	if err := required("purpose", in.Purpose); err != nil {
		return nil, err
	}

	var tor *entity.TOR
	err := e.mutate(ctx, caseID, "tor.save", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.TOR); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.TORs, tx.c.ID)
		if err != nil {
			return err
		}

		fill := func(t *entity.TOR) error {
			t.PositionTitle = in.PositionTitle
			t.Purpose = in.Purpose
			t.Responsibilities = in.Responsibilities
			t.Qualifications = in.Qualifications
			t.Grade = in.Grade
			t.DutyStation = in.DutyStation
			return nil
		}

		if existing == nil {
			tor = &entity.TOR{CaseID: tx.c.ID, Status: domainwf.StateDraft}
			_ = fill(tor)
			if err := e.stores.TORs.Create(ctx, tor); err != nil {
				return err
			}
			return tx.record(ctx, tor, "create", "", string(tor.Status), "")
		}

		if err := editableState(tx.action, "TOR", existing.Status); err != nil {
			return err
		}
		tor, err = e.stores.TORs.Update(ctx, existing.ID, fill)
		if err != nil {
			return err
		}
		return tx.record(ctx, tor, "edit", string(tor.Status), string(tor.Status), "")
	})
	if err != nil {
		return nil, err
	}
	return tor, nil
}

// torAction fires trigger on the case's TOR
func (e *Engine) torAction(ctx context.Context, caseID int64, trigger domainwf.Trigger, actor, note string, apply func(*entity.TOR) error) (*entity.TOR, error) {
	var tor *entity.TOR
	err := e.mutate(ctx, caseID, "tor."+trigger.String(), actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.TOR); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.TORs, tx.c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperror.Precondition(tx.action, "TOR has not been drafted")
		}

		tor, err = fire(ctx, tx, e.stores.TORs, existing.ID, trigger, note, approval.TORMachine, apply)
		if err != nil {
			return err
		}

		if trigger == domainwf.TriggerSubmit && tx.c.Status == entity.CaseStatusDraft {
			return tx.saveCase(ctx, func(rc *entity.RecruitmentCase) error {
				rc.Status = entity.CaseStatusTORPending
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tor, nil
}

// SubmitTOR sends the TOR for approval
func (e *Engine) SubmitTOR(ctx context.Context, caseID int64, actor string) (*entity.TOR, error) {
	return e.torAction(ctx, caseID, domainwf.TriggerSubmit, actor, "", func(t *entity.TOR) error {
		t.SubmittedBy = actor
		t.RejectionReason = ""
		return nil
	})
}

// ApproveTOR approves the pending TOR
func (e *Engine) ApproveTOR(ctx context.Context, caseID int64, actor string) (*entity.TOR, error) {
	return e.torAction(ctx, caseID, domainwf.TriggerApprove, actor, "", func(t *entity.TOR) error {
		t.ApprovedBy = actor
		t.ApprovedAt = e.stamp()
		return nil
	})
}

// RejectTOR returns the pending TOR for editing
func (e *Engine) RejectTOR(ctx context.Context, caseID int64, actor, reason string) (*entity.TOR, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}
	return e.torAction(ctx, caseID, domainwf.TriggerReject, actor, reason, func(t *entity.TOR) error {
		t.RejectionReason = reason
		return nil
	})
}

// SRFInput is the editable content of a Staff Requisition Form
type SRFInput struct {
	Positions      int     `json:"positions"`
	BudgetLine     string  `json:"budget_line"`
	MonthlySalary  float64 `json:"monthly_salary"`
	DurationMonths int     `json:"duration_months"`
	Justification  string  `json:"justification"`
}

func (in SRFInput) validate() error {
	if in.Positions < 1 {
		return apperror.Validation("positions", "must be at least 1")
	}
	if err := required("budget_line", in.BudgetLine); err != nil {
		return err
	}
	if err := utils.ValidateAmount(in.MonthlySalary); err != nil {
		return apperror.Validation("monthly_salary", "%v", err)
	}
	if in.DurationMonths < 0 {
		return apperror.Validation("duration_months", "must not be negative")
	}
	return nil
}

// SaveSRF drafts the SRF or edits the draft
func (e *Engine) SaveSRF(ctx context.Context, caseID int64, in SRFInput, actor string) (*entity.SRF, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var srf *entity.SRF
	err := e.mutate(ctx, caseID, "srf.save", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.editable(ctx, stage.SRFHRReview, stage.SRFFinanceReview); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.SRFs, tx.c.ID)
		if err != nil {
			return err
		}

		fill := func(s *entity.SRF) error {
			s.Positions = in.Positions
			s.BudgetLine = in.BudgetLine
			s.MonthlySalary = in.MonthlySalary
			s.DurationMonths = in.DurationMonths
			s.Justification = in.Justification
			return nil
		}

		if existing == nil {
			srf = &entity.SRF{CaseID: tx.c.ID, Status: domainwf.StateDraft}
			_ = fill(srf)
			if err := e.stores.SRFs.Create(ctx, srf); err != nil {
				return err
			}
			return tx.record(ctx, srf, "create", "", string(srf.Status), "")
		}

		if existing.Status != domainwf.StateDraft {
			return apperror.Precondition(tx.action, fmt.Sprintf("SRF is %s; only a draft SRF can be edited", existing.Status))
		}
		srf, err = e.stores.SRFs.Update(ctx, existing.ID, fill)
		if err != nil {
			return err
		}
		return tx.record(ctx, srf, "edit", string(srf.Status), string(srf.Status), "")
	})
	if err != nil {
		return nil, err
	}
	return srf, nil
}

func (e *Engine) srfAction(ctx context.Context, caseID int64, trigger domainwf.Trigger, actor, note string, apply func(*entity.SRF) error) (*entity.SRF, error) {
	var srf *entity.SRF
	err := e.mutate(ctx, caseID, "srf."+trigger.String(), actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.editable(ctx, stage.SRFHRReview, stage.SRFFinanceReview); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.SRFs, tx.c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperror.Precondition(tx.action, "SRF has not been drafted")
		}
		srf, err = fire(ctx, tx, e.stores.SRFs, existing.ID, trigger, note, approval.SRFMachine, apply)
		return err
	})
	if err != nil {
		return nil, err
	}
	return srf, nil
}

// SubmitSRF starts the HR review
func (e *Engine) SubmitSRF(ctx context.Context, caseID int64, actor string) (*entity.SRF, error) {
	return e.srfAction(ctx, caseID, domainwf.TriggerSubmit, actor, "", nil)
}

// VerifyHR records the HR verification and hands the SRF to finance
func (e *Engine) VerifyHR(ctx context.Context, caseID int64, actor string) (*entity.SRF, error) {
	return e.srfAction(ctx, caseID, domainwf.TriggerVerifyHR, actor, "", func(s *entity.SRF) error {
		s.HRVerified = true
		s.HRVerifiedBy = actor
		return nil
	})
}

// VerifyBudget records the budget verification. It is accepted during
// either review.
func (e *Engine) VerifyBudget(ctx context.Context, caseID int64, actor string) (*entity.SRF, error) {
	return e.srfAction(ctx, caseID, domainwf.TriggerVerifyBudget, actor, "", func(s *entity.SRF) error {
		s.BudgetVerified = true
		s.BudgetVerifiedBy = actor
		return nil
	})
}

// ApproveSRF approves the SRF once both verifications are present
func (e *Engine) ApproveSRF(ctx context.Context, caseID int64, actor string) (*entity.SRF, error) {
	return e.srfAction(ctx, caseID, domainwf.TriggerApprove, actor, "", func(s *entity.SRF) error {
		s.ApprovedAt = e.stamp()
		return nil
	})
}

// RejectSRF sends the SRF back to draft and clears both verifications
func (e *Engine) RejectSRF(ctx context.Context, caseID int64, actor, reason string) (*entity.SRF, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}
	return e.srfAction(ctx, caseID, domainwf.TriggerReject, actor, reason, func(s *entity.SRF) error {
		s.HRVerified = false
		s.HRVerifiedBy = ""
		s.BudgetVerified = false
		s.BudgetVerifiedBy = ""
		s.LastRejection = reason
		return nil
	})
}

// SaveReport drafts the selection report from the current ranking or edits
// a draft or rejected one
func (e *Engine) SaveReport(ctx context.Context, caseID int64, summary, actor string) (*entity.SelectionReport, error) {
	if err := required("summary", summary); err != nil {
		return nil, err
	}

	var report *entity.SelectionReport
	err := e.mutate(ctx, caseID, "selection_report.save", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.SelectionReport); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.Reports, tx.c.ID)
		if err != nil {
			return err
		}

		if existing != nil {
			if err := editableState(tx.action, "selection report", existing.Status); err != nil {
				return err
			}
			report, err = e.stores.Reports.Update(ctx, existing.ID, func(r *entity.SelectionReport) error {
				r.Summary = summary
				return nil
			})
			if err != nil {
				return err
			}
			return tx.record(ctx, report, "edit", string(report.Status), string(report.Status), "")
		}

		interview, err := latest(ctx, e.stores.Interviews, tx.c.ID)
		if err != nil {
			return err
		}
		if interview == nil || interview.RankedAt == nil {
			return apperror.Precondition(tx.action, "candidates have not been ranked")
		}

		number, err := e.stores.Sequences.Next(ctx, SequenceReport)
		if err != nil {
			return fmt.Errorf("failed to allocate report number: %w", err)
		}
		report = &entity.SelectionReport{
			CaseID:       tx.c.ID,
			InterviewID:  interview.ID,
			ReportNumber: number,
			Status:       domainwf.StateDraft,
			Summary:      summary,
		}
		if err := e.stores.Reports.Create(ctx, report); err != nil {
			return err
		}
		return tx.record(ctx, report, "create", "", string(report.Status), number)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (e *Engine) reportAction(ctx context.Context, caseID int64, trigger domainwf.Trigger, actor, note string, apply func(*entity.SelectionReport) error) (*entity.SelectionReport, error) {
	var report *entity.SelectionReport
	err := e.mutate(ctx, caseID, "selection_report."+trigger.String(), actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.SelectionReport); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.Reports, tx.c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperror.Precondition(tx.action, "selection report has not been drafted")
		}
		report, err = fire(ctx, tx, e.stores.Reports, existing.ID, trigger, note, approval.ReportMachine, apply)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SubmitReport sends the selection report for approval
func (e *Engine) SubmitReport(ctx context.Context, caseID int64, actor string) (*entity.SelectionReport, error) {
	return e.reportAction(ctx, caseID, domainwf.TriggerSubmit, actor, "", func(r *entity.SelectionReport) error {
		r.SubmittedBy = actor
		r.RejectionReason = ""
		return nil
	})
}

// ApproveReport approves the pending selection report
func (e *Engine) ApproveReport(ctx context.Context, caseID int64, actor string) (*entity.SelectionReport, error) {
	return e.reportAction(ctx, caseID, domainwf.TriggerApprove, actor, "", func(r *entity.SelectionReport) error {
		r.ApprovedBy = actor
		r.ApprovedAt = e.stamp()
		return nil
	})
}

// RejectReport returns the pending selection report for editing
func (e *Engine) RejectReport(ctx context.Context, caseID int64, actor, reason string) (*entity.SelectionReport, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}
	return e.reportAction(ctx, caseID, domainwf.TriggerReject, actor, reason, func(r *entity.SelectionReport) error {
		r.RejectionReason = reason
		return nil
	})
}
