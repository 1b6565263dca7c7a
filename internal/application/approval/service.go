// Package approval drives the gated documents of a recruitment case (TOR,
// SRF, selection report, offer, sanction check, contract) through their state
// machines. Every transition is persisted together with an audit entry.
package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/recruitment-engine/internal/application/dispatcher"
	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/event"
	domainwf "github.com/garyjia/recruitment-engine/internal/domain/workflow"
)

// Service records document transitions
type Service struct {
	history    port.Store[*entity.HistoryEntry]
	tx         port.TransactionManager
	dispatcher dispatcher.Dispatcher
}

// Option configures the service
type Option func(*Service)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// NewService creates an approval service
func NewService(history port.Store[*entity.HistoryEntry], tx port.TransactionManager, opts ...Option) *Service {
	s := &Service{history: history, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transition is one requested trigger on a document of type T
type Transition[T entity.Document] struct {
	Trigger domainwf.Trigger
	Actor   string
	Note    string

	// Machine builds the state machine for the freshly loaded document
	Machine func(doc T) domainwf.StateMachine

	// Apply runs after the machine accepted the trigger, before the document is saved.
	// An error aborts the transition.
	Apply func(doc T, from, to domainwf.State) error

	// Emit receives the transition event when the caller owns the enclosing
	// transaction and dispatches its events after commit. Without Emit the
	// event is dispatched as soon as Fire commits.
	Emit func(evt *event.Event)
}

// Fire loads the document, fires the trigger and saves the new state with a
// history entry, all in one transaction. A refused trigger becomes a
// PreconditionError and leaves the document untouched.
func Fire[T entity.Document](ctx context.Context, s *Service, store port.Store[T], id int64, tr Transition[T]) (T, error) {
	var (
		saved    T
		from, to domainwf.State
	)

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := store.Update(txCtx, id, func(doc T) error {
			from = doc.GetStatus()

			machine := tr.Machine(doc)
			if err := machine.Fire(txCtx, tr.Trigger); err != nil {
				return translate(doc.Kind(), tr.Trigger, from, err)
			}
			to = machine.State()
			doc.SetStatus(to)

			if tr.Apply != nil {
				return tr.Apply(doc, from, to)
			}
			return nil
		})
		if err != nil {
			return err
		}

		entry := &entity.HistoryEntry{
			CaseID:         doc.OwnerCaseID(),
			Entity:         doc.Kind(),
			EntityID:       id,
			Action:         tr.Trigger.String(),
			PreviousStatus: from.String(),
			NewStatus:      to.String(),
			Actor:          tr.Actor,
			Note:           tr.Note,
		}
		if err := s.history.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}

		saved = doc
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	evt := event.NewEvent(event.TypeApprovalTransitioned, saved.OwnerCaseID(), map[string]interface{}{
		"entity":          saved.Kind(),
		"entity_id":       id,
		"trigger":         tr.Trigger.String(),
		"previous_status": from.String(),
		"new_status":      to.String(),
	}).ByActor(tr.Actor)

	switch {
	case tr.Emit != nil:
		tr.Emit(evt)
	case s.dispatcher != nil:
		s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
	}

	return saved, nil
}

// translate maps state machine refusals onto the engine's error taxonomy
func translate(kind string, trigger domainwf.Trigger, from domainwf.State, err error) error {
	action := fmt.Sprintf("%s.%s", kind, trigger)

	switch {
	case errors.Is(err, domainwf.ErrGuardFailed):
		if conditions := apperror.UnmetConditions(err); len(conditions) > 0 {
			return apperror.Precondition(action, conditions...)
		}
		return apperror.Precondition(action, err.Error())
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return apperror.Precondition(action, fmt.Sprintf("%s is %s", kind, from))
	}
	return err
}
