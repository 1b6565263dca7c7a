package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/approval"
	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	domainwf "github.com/garyjia/recruitment-engine/internal/domain/workflow"
	"github.com/garyjia/recruitment-engine/pkg/utils"
)

// OfferInput are the terms of an offer
type OfferInput struct {
	Salary    float64    `json:"salary"`
	Currency  string     `json:"currency"`
	StartDate *time.Time `json:"start_date"`
}

// CreateOffer drafts an offer for the rank-1 candidate recommended for hire.
// Only one draft, sent or accepted offer may exist per case.
func (e *Engine) CreateOffer(ctx context.Context, caseID, applicationID int64, in OfferInput, actor string) (*entity.Offer, error) {
	if err := utils.ValidateAmount(in.Salary); err != nil {
		return nil, apperror.Validation("salary", "%v", err)
	}
	if err := utils.ValidateCurrency(in.Currency); err != nil {
		return nil, apperror.Validation("currency", "%v", err)
	}

	var offer *entity.Offer
	err := e.mutate(ctx, caseID, "offer.create", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Offer); err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, applicationID)
		if err != nil {
			return err
		}

		hire, err := e.selectedHire(ctx, tx)
		if err != nil {
			return err
		}
		if hire.ApplicationID != app.ID {
			return apperror.Precondition(tx.action, fmt.Sprintf("application %d is not the rank-1 candidate recommended for hire", app.ID))
		}

		offers, err := byCase(ctx, e.stores.Offers, tx.c.ID)
		if err != nil {
			return err
		}
		for _, o := range offers {
			if o.IsLive() {
				return apperror.Precondition(tx.action, fmt.Sprintf("offer %s is already %s", o.OfferNumber, o.Status))
			}
		}

		number, err := e.stores.Sequences.Next(ctx, SequenceOffer)
		if err != nil {
			return fmt.Errorf("failed to allocate offer number: %w", err)
		}
		offer = &entity.Offer{
			CaseID:        tx.c.ID,
			ApplicationID: app.ID,
			OfferNumber:   number,
			Status:        domainwf.StateDraft,
			Salary:        in.Salary,
			Currency:      in.Currency,
			StartDate:     in.StartDate,
		}
		if err := e.stores.Offers.Create(ctx, offer); err != nil {
			return err
		}
		return tx.record(ctx, offer, "create", "", string(offer.Status), number)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// selectedHire returns the rank-1 result when it carries the hire recommendation
func (e *Engine) selectedHire(ctx context.Context, tx *caseTx) (*entity.InterviewResult, error) {
	interview, err := latest(ctx, e.stores.Interviews, tx.c.ID)
	if err != nil {
		return nil, err
	}
	if interview == nil || interview.RankedAt == nil {
		return nil, apperror.Precondition(tx.action, "candidates have not been ranked")
	}
	results, err := byParent(ctx, e.stores.Results, interview.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Rank == 1 && r.Recommendation == entity.ResultHire {
			return r, nil
		}
	}
	return nil, apperror.Precondition(tx.action, "no candidate is recommended for hire")
}

func (e *Engine) offerAction(ctx context.Context, caseID, offerID int64, trigger domainwf.Trigger, actor, note string, apply func(*entity.Offer) error) (*entity.Offer, error) {
	var offer *entity.Offer
	err := e.mutate(ctx, caseID, "offer."+trigger.String(), actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Offer); err != nil {
			return err
		}
		existing, err := owned(ctx, e.stores.Offers, "offer", offerID, tx.c.ID)
		if err != nil {
			return err
		}
		if trigger != domainwf.TriggerDecline {
			if _, err := tx.activeApplication(ctx, existing.ApplicationID); err != nil {
				return err
			}
		}
		offer, err = fire(ctx, tx, e.stores.Offers, offerID, trigger, note, approval.OfferMachine, apply)
		if err != nil {
			return err
		}

		if trigger == domainwf.TriggerSend {
			changed, err := e.funnel.PromoteApplication(ctx, offer.ApplicationID, entity.ApplicationOffered, actor)
			if err != nil {
				return err
			}
			if changed {
				tx.emit(event.TypeApplicationUpdated, map[string]interface{}{
					"application_id": offer.ApplicationID,
					"status":         string(entity.ApplicationOffered),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// SendOffer sends a drafted offer to the candidate
func (e *Engine) SendOffer(ctx context.Context, caseID, offerID int64, actor string) (*entity.Offer, error) {
	return e.offerAction(ctx, caseID, offerID, domainwf.TriggerSend, actor, "", func(o *entity.Offer) error {
		o.SentAt = e.stamp()
		return nil
	})
}

// AcceptOffer records the candidate's acceptance
func (e *Engine) AcceptOffer(ctx context.Context, caseID, offerID int64, actor string) (*entity.Offer, error) {
	return e.offerAction(ctx, caseID, offerID, domainwf.TriggerAccept, actor, "", func(o *entity.Offer) error {
		o.RespondedAt = e.stamp()
		return nil
	})
}

// DeclineOffer records the candidate's refusal. A new offer may then be drafted.
func (e *Engine) DeclineOffer(ctx context.Context, caseID, offerID int64, actor, reason string) (*entity.Offer, error) {
	return e.offerAction(ctx, caseID, offerID, domainwf.TriggerDecline, actor, reason, func(o *entity.Offer) error {
		o.RespondedAt = e.stamp()
		o.DeclineReason = reason
		return nil
	})
}

// withdrawOffers withdraws the live offers of an application that left the process
func (e *Engine) withdrawOffers(ctx context.Context, tx *caseTx, applicationID int64, reason string) error {
	offers, err := byCase(ctx, e.stores.Offers, tx.c.ID)
	if err != nil {
		return err
	}
	for _, o := range offers {
		if o.ApplicationID != applicationID || !o.IsLive() {
			continue
		}
		if _, err := fire(ctx, tx, e.stores.Offers, o.ID, domainwf.TriggerWithdraw, reason, approval.OfferMachine, func(o *entity.Offer) error {
			o.RespondedAt = e.stamp()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// acceptedOffer returns the case's accepted offer
func (tx *caseTx) acceptedOffer(ctx context.Context) (*entity.Offer, error) {
	offers, err := byCase(ctx, tx.e.stores.Offers, tx.c.ID)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		if o.Status == domainwf.StateAccepted {
			return o, nil
		}
	}
	return nil, apperror.Precondition(tx.action, "no offer has been accepted")
}

// RunSanctionCheck screens the selected candidate. The candidate's full name
// and father's name must be filled in. The check moves to checking, the
// screener runs outside any transaction, and the outcome is stored as
// cleared or flagged. When screening fails or times out the check returns
// to pending and a retryable error is returned.
func (e *Engine) RunSanctionCheck(ctx context.Context, caseID int64, actor string) (*entity.SanctionCheck, error) {
	if e.screener == nil {
		return nil, apperror.Precondition("sanction_check.run", "no sanction screener is configured")
	}

	unlock := e.lockCase(caseID)
	defer unlock()

	var (
		check   *entity.SanctionCheck
		subject port.ScreeningSubject
	)
	err := e.transact(ctx, caseID, "sanction_check.start", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.SanctionCheck); err != nil {
			return err
		}
		offer, err := tx.acceptedOffer(ctx)
		if err != nil {
			return err
		}
		app, err := tx.activeApplication(ctx, offer.ApplicationID)
		if err != nil {
			return err
		}
		cand, err := mustGet(ctx, e.stores.Candidates, "candidate", app.CandidateID)
		if err != nil {
			return err
		}
		if err := required("full_name", cand.FullName); err != nil {
			return apperror.Validation("full_name", "fill in candidate name before running the sanction check")
		}
		if err := required("father_name", cand.FatherName); err != nil {
			return apperror.Validation("father_name", "fill in father's name before running the sanction check")
		}
		subject = port.ScreeningSubject{FullName: cand.FullName, FatherName: cand.FatherName, NationalID: cand.NationalID}

		existing, err := latest(ctx, e.stores.SanctionChecks, tx.c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			existing = &entity.SanctionCheck{
				CaseID:        tx.c.ID,
				ApplicationID: app.ID,
				Status:        domainwf.StatePending,
			}
			if err := e.stores.SanctionChecks.Create(ctx, existing); err != nil {
				return err
			}
		}

		check, err = fire(ctx, tx, e.stores.SanctionChecks, existing.ID, domainwf.TriggerStartCheck, "", approval.SanctionMachine, func(s *entity.SanctionCheck) error {
			s.FullName = cand.FullName
			s.FatherName = cand.FatherName
			s.Attempts++
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome, screenErr := e.screener.Screen(ctx, subject)

	trigger := domainwf.TriggerClear
	switch {
	case screenErr != nil:
		trigger = domainwf.TriggerAbortCheck
	case outcome.Flagged:
		trigger = domainwf.TriggerFlag
	}

	// the outcome is stored even when the caller's context is already done
	storeCtx := context.WithoutCancel(ctx)
	err = e.transact(storeCtx, caseID, "sanction_check."+trigger.String(), actor, func(ctx context.Context, tx *caseTx) error {
		var err error
		check, err = fire(ctx, tx, e.stores.SanctionChecks, check.ID, trigger, errorNote(screenErr), approval.SanctionMachine, func(s *entity.SanctionCheck) error {
			if screenErr != nil {
				return nil
			}
			s.CheckedAt = e.stamp()
			s.MatchDetails = outcome.Details
			return nil
		})
		if err != nil {
			return err
		}
		tx.emit(event.TypeSanctionScreened, map[string]interface{}{
			"check_id": check.ID,
			"status":   string(check.Status),
			"attempts": check.Attempts,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if screenErr != nil {
		if errors.Is(screenErr, apperror.ErrRetryable) {
			return check, screenErr
		}
		return check, apperror.Retryable("sanction check", screenErr)
	}
	return check, nil
}

func errorNote(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// OverrideSanction clears a flagged check by an explicit, audited decision
func (e *Engine) OverrideSanction(ctx context.Context, caseID int64, actor, reason string) (*entity.SanctionCheck, error) {
	if err := required("reason", reason); err != nil {
		return nil, err
	}

	var check *entity.SanctionCheck
	err := e.mutate(ctx, caseID, "sanction_check.override", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.SanctionCheck); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.SanctionChecks, tx.c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperror.Precondition(tx.action, "sanction check has not been started")
		}
		if _, err := tx.activeApplication(ctx, existing.ApplicationID); err != nil {
			return err
		}
		check, err = fire(ctx, tx, e.stores.SanctionChecks, existing.ID, domainwf.TriggerOverride, reason, approval.SanctionMachine, func(s *entity.SanctionCheck) error {
			s.OverriddenBy = actor
			s.OverrideReason = reason
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// StartBackgroundCheck opens the background check once sanctions are cleared
func (e *Engine) StartBackgroundCheck(ctx context.Context, caseID int64, actor string) (*entity.BackgroundCheck, error) {
	var bg *entity.BackgroundCheck
	err := e.mutate(ctx, caseID, "background_check.start", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.BackgroundCheck); err != nil {
			return err
		}
		check, err := latest(ctx, e.stores.SanctionChecks, tx.c.ID)
		if err != nil {
			return err
		}
		if check == nil || check.Status != domainwf.StateCleared {
			return apperror.Precondition(tx.action, "sanction check is not cleared")
		}
		if _, err := tx.activeApplication(ctx, check.ApplicationID); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.BackgroundChecks, tx.c.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Precondition(tx.action, "background check is already started")
		}

		bg = &entity.BackgroundCheck{
			CaseID:          tx.c.ID,
			ApplicationID:   check.ApplicationID,
			Status:          entity.BackgroundInProgress,
			GuaranteeLetter: entity.TrackPending,
			HomeAddress:     entity.TrackPending,
			CriminalRecord:  entity.TrackPending,
		}
		if err := e.stores.BackgroundChecks.Create(ctx, bg); err != nil {
			return err
		}
		return tx.record(ctx, bg, "create", "", string(bg.Status), "")
	})
	if err != nil {
		return nil, err
	}
	return bg, nil
}

// openBackgroundCheck loads the case's background check while it is in progress
func (tx *caseTx) openBackgroundCheck(ctx context.Context) (*entity.BackgroundCheck, error) {
	bg, err := latest(ctx, tx.e.stores.BackgroundChecks, tx.c.ID)
	if err != nil {
		return nil, err
	}
	if bg == nil {
		return nil, apperror.Precondition(tx.action, "background check has not been started")
	}
	if bg.Status == entity.BackgroundCompleted {
		return nil, apperror.Precondition(tx.action, "background check is completed")
	}
	return bg, nil
}

// ReferenceInput describes a referee
type ReferenceInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Contact      string `json:"contact"`
}

// AddReference adds a referee to the background check
func (e *Engine) AddReference(ctx context.Context, caseID int64, in ReferenceInput, actor string) (*entity.Reference, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("contact", in.Contact); err != nil {
		return nil, err
	}

	var ref *entity.Reference
	err := e.mutate(ctx, caseID, "background_check.add_reference", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.BackgroundCheck); err != nil {
			return err
		}
		bg, err := tx.openBackgroundCheck(ctx)
		if err != nil {
			return err
		}
		ref = &entity.Reference{
			CheckID:      bg.ID,
			CaseID:       tx.c.ID,
			Name:         utils.SanitizeString(in.Name),
			Relationship: in.Relationship,
			Contact:      in.Contact,
			Status:       entity.TrackPending,
		}
		if err := e.stores.References.Create(ctx, ref); err != nil {
			return err
		}
		return tx.record(ctx, ref, "create", "", string(ref.Status), ref.Name)
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// trackOutcomes lists the statuses each track accepts
var trackOutcomes = map[string]map[entity.TrackStatus]bool{
	entity.TrackReferences:      {entity.TrackPending: true, entity.TrackVerified: true, entity.TrackFailed: true},
	entity.TrackGuaranteeLetter: {entity.TrackPending: true, entity.TrackReceived: true, entity.TrackVerified: true, entity.TrackRejected: true},
	entity.TrackHomeAddress:     {entity.TrackPending: true, entity.TrackVerified: true, entity.TrackFailed: true},
	entity.TrackCriminalRecord:  {entity.TrackPending: true, entity.TrackCleared: true, entity.TrackFlagged: true},
}

func validateTrack(track string, status entity.TrackStatus) error {
	allowed, ok := trackOutcomes[track]
	if !ok {
		return apperror.Validation("track", "unknown background check track %q", track)
	}
	if !allowed[status] {
		return apperror.Validation("status", "%q is not a valid %s status", status, track)
	}
	return nil
}

// SetReferenceStatus records the outcome of contacting a referee
func (e *Engine) SetReferenceStatus(ctx context.Context, caseID, referenceID int64, status entity.TrackStatus, notes, actor string) (*entity.Reference, error) {
	if err := validateTrack(entity.TrackReferences, status); err != nil {
		return nil, err
	}

	var ref *entity.Reference
	err := e.mutate(ctx, caseID, "background_check.reference", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.BackgroundCheck); err != nil {
			return err
		}
		if _, err := tx.openBackgroundCheck(ctx); err != nil {
			return err
		}
		existing, err := owned(ctx, e.stores.References, "reference", referenceID, tx.c.ID)
		if err != nil {
			return err
		}
		previous := existing.Status
		ref, err = e.stores.References.Update(ctx, existing.ID, func(r *entity.Reference) error {
			r.Status = status
			r.Notes = notes
			return nil
		})
		if err != nil {
			return err
		}
		return tx.record(ctx, ref, "set_status", string(previous), string(status), notes)
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// SetBackgroundTrack records the state of the guarantee letter, home address
// or criminal record track
func (e *Engine) SetBackgroundTrack(ctx context.Context, caseID int64, track string, status entity.TrackStatus, notes, actor string) (*entity.BackgroundCheck, error) {
	if track == entity.TrackReferences {
		return nil, apperror.Validation("track", "references are tracked per referee")
	}
	if err := validateTrack(track, status); err != nil {
		return nil, err
	}

	var bg *entity.BackgroundCheck
	err := e.mutate(ctx, caseID, "background_check."+track, actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.BackgroundCheck); err != nil {
			return err
		}
		existing, err := tx.openBackgroundCheck(ctx)
		if err != nil {
			return err
		}

		var previous entity.TrackStatus
		bg, err = e.stores.BackgroundChecks.Update(ctx, existing.ID, func(b *entity.BackgroundCheck) error {
			switch track {
			case entity.TrackGuaranteeLetter:
				previous, b.GuaranteeLetter = b.GuaranteeLetter, status
			case entity.TrackHomeAddress:
				previous, b.HomeAddress = b.HomeAddress, status
			case entity.TrackCriminalRecord:
				previous, b.CriminalRecord = b.CriminalRecord, status
			}
			if notes != "" {
				b.Notes = notes
			}
			return nil
		})
		if err != nil {
			return err
		}
		return tx.record(ctx, bg, track, string(previous), string(status), notes)
	})
	if err != nil {
		return nil, err
	}
	return bg, nil
}

// CompleteBackgroundCheck closes the background check when every track has
// reached its verified or cleared state; otherwise the unmet tracks are named
func (e *Engine) CompleteBackgroundCheck(ctx context.Context, caseID int64, actor string) (*entity.BackgroundCheck, error) {
	var bg *entity.BackgroundCheck
	err := e.mutate(ctx, caseID, "background_check.complete", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.BackgroundCheck); err != nil {
			return err
		}
		existing, err := tx.openBackgroundCheck(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.activeApplication(ctx, existing.ApplicationID); err != nil {
			return err
		}
		refs, err := byParent(ctx, e.stores.References, existing.ID)
		if err != nil {
			return err
		}
		if unmet := stage.BackgroundUnmet(existing, refs, e.cfg.Rules.MinVerifiedReferences); len(unmet) > 0 {
			return apperror.Precondition(tx.action, unmet...)
		}

		bg, err = e.stores.BackgroundChecks.Update(ctx, existing.ID, func(b *entity.BackgroundCheck) error {
			b.Status = entity.BackgroundCompleted
			b.CompletedAt = e.stamp()
			return nil
		})
		if err != nil {
			return err
		}
		return tx.record(ctx, bg, "complete", string(entity.BackgroundInProgress), string(bg.Status), "")
	})
	if err != nil {
		return nil, err
	}
	return bg, nil
}

// ContractInput are the terms of the employment contract
type ContractInput struct {
	ContractType string     `json:"contract_type"`
	Salary       float64    `json:"salary"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
}

// DraftContract drafts the contract of the hired candidate once the
// background check is completed, and seeds the file checklist
func (e *Engine) DraftContract(ctx context.Context, caseID int64, in ContractInput, actor string) (*entity.Contract, error) {
	if err := utils.ValidateAmount(in.Salary); err != nil {
		return nil, apperror.Validation("salary", "%v", err)
	}
	if in.ContractType != "" && !contractTypes[in.ContractType] {
		return nil, apperror.Validation("contract_type", "unknown contract type %q", in.ContractType)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, apperror.Validation("end_date", "must not be before the start date")
	}

	var contract *entity.Contract
	err := e.mutate(ctx, caseID, "contract.draft", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Contract); err != nil {
			return err
		}
		bg, err := latest(ctx, e.stores.BackgroundChecks, tx.c.ID)
		if err != nil {
			return err
		}
		if bg == nil || bg.Status != entity.BackgroundCompleted {
			return apperror.Precondition(tx.action, "background check is not completed")
		}
		if _, err := tx.activeApplication(ctx, bg.ApplicationID); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.Contracts, tx.c.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Precondition(tx.action, fmt.Sprintf("contract %s is already drafted", existing.ContractNumber))
		}

		contractType := in.ContractType
		if contractType == "" {
			contractType = tx.c.ContractType
		}
		number, err := e.stores.Sequences.Next(ctx, SequenceContract)
		if err != nil {
			return fmt.Errorf("failed to allocate contract number: %w", err)
		}
		contract = &entity.Contract{
			CaseID:         tx.c.ID,
			ApplicationID:  bg.ApplicationID,
			ContractNumber: number,
			Status:         domainwf.StateDraft,
			ContractType:   contractType,
			Salary:         in.Salary,
			StartDate:      in.StartDate,
			EndDate:        in.EndDate,
		}
		if err := e.stores.Contracts.Create(ctx, contract); err != nil {
			return err
		}
		if err := tx.record(ctx, contract, "create", "", string(contract.Status), number); err != nil {
			return err
		}
		return e.seedChecklist(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// seedChecklist adds the configured required documents that are not on the checklist yet
func (e *Engine) seedChecklist(ctx context.Context, tx *caseTx) error {
	items, err := byCase(ctx, e.stores.Checklist, tx.c.ID)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(items))
	for _, item := range items {
		present[item.Name] = true
	}
	for _, name := range e.cfg.RequiredDocuments {
		if present[name] {
			continue
		}
		if err := e.stores.Checklist.Create(ctx, &entity.ChecklistItem{CaseID: tx.c.ID, Name: name, Required: true}); err != nil {
			return err
		}
		present[name] = true
	}
	return nil
}

func (e *Engine) contractAction(ctx context.Context, caseID int64, trigger domainwf.Trigger, actor string, apply func(*entity.Contract) error, after func(ctx context.Context, tx *caseTx, c *entity.Contract) error) (*entity.Contract, error) {
	var contract *entity.Contract
	err := e.mutate(ctx, caseID, "contract."+trigger.String(), actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Contract); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.Contracts, tx.c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperror.Precondition(tx.action, "contract has not been drafted")
		}
		if _, err := tx.activeApplication(ctx, existing.ApplicationID); err != nil {
			return err
		}
		items, err := byCase(ctx, e.stores.Checklist, tx.c.ID)
		if err != nil {
			return err
		}
		checklistUnmet := stage.ChecklistUnmet(items)

		contract, err = fire(ctx, tx, e.stores.Contracts, existing.ID, trigger, "", func(c *entity.Contract) domainwf.StateMachine {
			return approval.ContractMachine(c, checklistUnmet)
		}, apply)
		if err != nil {
			return err
		}
		if after != nil {
			return after(ctx, tx, contract)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// RequestSignature sends the drafted contract for signature
func (e *Engine) RequestSignature(ctx context.Context, caseID int64, actor string) (*entity.Contract, error) {
	return e.contractAction(ctx, caseID, domainwf.TriggerRequestSignature, actor, nil, nil)
}

// SignContract records the signature
func (e *Engine) SignContract(ctx context.Context, caseID int64, actor string) (*entity.Contract, error) {
	return e.contractAction(ctx, caseID, domainwf.TriggerSign, actor, func(c *entity.Contract) error {
		c.SignedAt = e.stamp()
		return nil
	}, nil)
}

// ActivateContract activates the signed contract when every required
// checklist item is checked. Activation hires the candidate and completes the case.
func (e *Engine) ActivateContract(ctx context.Context, caseID int64, actor string) (*entity.Contract, error) {
	return e.contractAction(ctx, caseID, domainwf.TriggerActivate, actor, func(c *entity.Contract) error {
		c.ActivatedAt = e.stamp()
		return nil
	}, func(ctx context.Context, tx *caseTx, c *entity.Contract) error {
		changed, err := e.funnel.PromoteApplication(ctx, c.ApplicationID, entity.ApplicationHired, tx.actor)
		if err != nil {
			return err
		}
		if !changed {
			return apperror.Precondition(tx.action, fmt.Sprintf("application %d cannot be hired", c.ApplicationID))
		}
		tx.emit(event.TypeApplicationUpdated, map[string]interface{}{
			"application_id": c.ApplicationID,
			"status":         string(entity.ApplicationHired),
		})
		return tx.complete(ctx)
	})
}

// AddChecklistItem adds a document to the employee file checklist
func (e *Engine) AddChecklistItem(ctx context.Context, caseID int64, name string, isRequired bool, actor string) (*entity.ChecklistItem, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}

	var item *entity.ChecklistItem
	err := e.mutate(ctx, caseID, "checklist.add", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Contract); err != nil {
			return err
		}
		item = &entity.ChecklistItem{CaseID: tx.c.ID, Name: utils.SanitizeString(name), Required: isRequired}
		if err := e.stores.Checklist.Create(ctx, item); err != nil {
			return err
		}
		return tx.record(ctx, item, "create", "", "", item.Name)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SetChecklistItem checks or unchecks a checklist item
func (e *Engine) SetChecklistItem(ctx context.Context, caseID, itemID int64, checked bool, actor string) (*entity.ChecklistItem, error) {
	var item *entity.ChecklistItem
	err := e.mutate(ctx, caseID, "checklist.set", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Contract); err != nil {
			return err
		}
		existing, err := owned(ctx, e.stores.Checklist, "checklist item", itemID, tx.c.ID)
		if err != nil {
			return err
		}
		item, err = e.stores.Checklist.Update(ctx, existing.ID, func(i *entity.ChecklistItem) error {
			i.Checked = checked
			if checked {
				i.CheckedBy = actor
				i.CheckedAt = e.stamp()
			} else {
				i.CheckedBy = ""
				i.CheckedAt = nil
			}
			return nil
		})
		if err != nil {
			return err
		}
		return tx.record(ctx, item, "set", "", fmt.Sprintf("checked=%t", checked), item.Name)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
