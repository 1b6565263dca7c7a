package approval

import (
	"context"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	domainwf "github.com/garyjia/recruitment-engine/internal/domain/workflow"
)

// unmet turns a list of unmet conditions into a guard refusal
func unmet(conditions []string) error {
	if len(conditions) == 0 {
		return nil
	}
	return apperror.Precondition("guard", conditions...)
}

// buildReviewMachine is the single-approver flow shared by the TOR and the
// selection report. A rejected document goes back to editing and may be resubmitted.
func buildReviewMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StatePendingApproval)

	builder.Configure(domainwf.StatePendingApproval).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	builder.Configure(domainwf.StateRejected).
		Permit(domainwf.TriggerSubmit, domainwf.StatePendingApproval)

	// APPROVED is terminal

	return builder.Build(initialState)
}

// TORMachine builds the state machine of a Terms of Reference
func TORMachine(tor *entity.TOR) domainwf.StateMachine {
	return buildReviewMachine(tor.Status)
}

// ReportMachine builds the state machine of a selection report
func ReportMachine(report *entity.SelectionReport) domainwf.StateMachine {
	return buildReviewMachine(report.Status)
}

// SRFMachine builds the two-reviewer requisition flow. Budget verification is
// accepted in either review state; approval needs both verifications no matter
// in which order they were given.
func SRFMachine(srf *entity.SRF) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	bothVerified := func(ctx context.Context) error {
		return unmet(stage.SRFVerificationUnmet(srf))
	}

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StateHRReview)

	builder.Configure(domainwf.StateHRReview).
		Permit(domainwf.TriggerVerifyHR, domainwf.StateFinanceReview).
		Permit(domainwf.TriggerVerifyBudget, domainwf.StateHRReview).
		Permit(domainwf.TriggerReject, domainwf.StateDraft)

	builder.Configure(domainwf.StateFinanceReview).
		Permit(domainwf.TriggerVerifyBudget, domainwf.StateFinanceReview).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, bothVerified).
		Permit(domainwf.TriggerReject, domainwf.StateDraft)

	return builder.Build(srf.Status)
}

// OfferMachine builds the offer flow. A live offer is withdrawn when its
// application is rejected or withdrawn.
func OfferMachine(offer *entity.Offer) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSend, domainwf.StateSent).
		Permit(domainwf.TriggerWithdraw, domainwf.StateWithdrawn)

	builder.Configure(domainwf.StateSent).
		Permit(domainwf.TriggerAccept, domainwf.StateAccepted).
		Permit(domainwf.TriggerDecline, domainwf.StateDeclined).
		Permit(domainwf.TriggerWithdraw, domainwf.StateWithdrawn)

	builder.Configure(domainwf.StateAccepted).
		Permit(domainwf.TriggerWithdraw, domainwf.StateWithdrawn)

	return builder.Build(offer.Status)
}

// SanctionMachine builds the screening flow. A check that could not finish
// returns to pending; a flagged subject only clears through an override.
func SanctionMachine(check *entity.SanctionCheck) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerStartCheck, domainwf.StateChecking)

	builder.Configure(domainwf.StateChecking).
		Permit(domainwf.TriggerClear, domainwf.StateCleared).
		Permit(domainwf.TriggerFlag, domainwf.StateFlagged).
		Permit(domainwf.TriggerAbortCheck, domainwf.StatePending)

	builder.Configure(domainwf.StateFlagged).
		Permit(domainwf.TriggerOverride, domainwf.StateCleared)

	return builder.Build(check.Status)
}

// ContractMachine builds the contract flow. checklistUnmet lists the required
// file-checklist items still unchecked; activation is refused while any remain.
func ContractMachine(contract *entity.Contract, checklistUnmet []string) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	checklistComplete := func(ctx context.Context) error {
		return unmet(checklistUnmet)
	}

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerRequestSignature, domainwf.StatePendingSignature).
		Permit(domainwf.TriggerSign, domainwf.StateSigned)

	builder.Configure(domainwf.StatePendingSignature).
		Permit(domainwf.TriggerSign, domainwf.StateSigned)

	builder.Configure(domainwf.StateSigned).
		PermitIf(domainwf.TriggerActivate, domainwf.StateActive, checklistComplete)

	return builder.Build(contract.Status)
}
