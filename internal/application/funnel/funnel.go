// Package funnel moves candidate applications through the pipeline. Status
// only moves forward, except for explicit rejection or withdrawal.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
)

var progression = map[entity.ApplicationStatus]int{
	entity.ApplicationReceived:    0,
	entity.ApplicationLonglisted:  1,
	entity.ApplicationShortlisted: 2,
	entity.ApplicationTested:      3,
	entity.ApplicationInterviewed: 4,
	entity.ApplicationOffered:     5,
	entity.ApplicationHired:       6,
}

// IsClosed reports whether the application has left the funnel
func IsClosed(s entity.ApplicationStatus) bool {
	return s == entity.ApplicationHired || s.IsDropped()
}

// IsActive reports whether the application is still competing
func IsActive(s entity.ApplicationStatus) bool {
	return !IsClosed(s)
}

// Promote computes the status after moving towards target. Moving to a
// status at or behind the current one is a no-op, as is promoting a
// closed application; changed reports whether anything moved.
func Promote(from, target entity.ApplicationStatus) (next entity.ApplicationStatus, changed bool, err error) {
	to, ok := progression[target]
	if !ok {
		return from, false, fmt.Errorf("%s is not a forward status", target)
	}
	if IsClosed(from) {
		return from, false, nil
	}
	if progression[from] >= to {
		return from, false, nil
	}
	return target, true, nil
}

// Service applies funnel moves to stored applications and audits them
type Service struct {
	apps    port.Store[*entity.Application]
	history port.Store[*entity.HistoryEntry]
	now     func() time.Time
}

// NewService creates a funnel service
func NewService(apps port.Store[*entity.Application], history port.Store[*entity.HistoryEntry]) *Service {
	return &Service{apps: apps, history: history, now: time.Now}
}

// PromoteApplication moves the application forward to target if it is behind it
func (s *Service) PromoteApplication(ctx context.Context, id int64, target entity.ApplicationStatus, actor string) (bool, error) {
	return s.move(ctx, id, actor, "", func(app *entity.Application) (bool, error) {
		next, changed, err := Promote(app.Status, target)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}
		app.Status = next
		if next == entity.ApplicationHired {
			app.ClosedAt = s.stamp()
		}
		return true, nil
	})
}

// Reject closes an active application. Rejecting an already rejected one is a no-op.
func (s *Service) Reject(ctx context.Context, id int64, actor, reason string) (bool, error) {
	return s.move(ctx, id, actor, reason, func(app *entity.Application) (bool, error) {
		switch app.Status {
		case entity.ApplicationRejected:
			return false, nil
		case entity.ApplicationHired, entity.ApplicationWithdrawn:
			return false, apperror.Precondition("application.reject", fmt.Sprintf("application is %s", app.Status))
		}
		app.Status = entity.ApplicationRejected
		app.StatusReason = reason
		app.ClosedAt = s.stamp()
		return true, nil
	})
}

// Withdraw records that the candidate left the process
func (s *Service) Withdraw(ctx context.Context, id int64, actor, reason string) (bool, error) {
	return s.move(ctx, id, actor, reason, func(app *entity.Application) (bool, error) {
		switch app.Status {
		case entity.ApplicationWithdrawn:
			return false, nil
		case entity.ApplicationHired, entity.ApplicationRejected:
			return false, apperror.Precondition("application.withdraw", fmt.Sprintf("application is %s", app.Status))
		}
		app.Status = entity.ApplicationWithdrawn
		app.StatusReason = reason
		app.ClosedAt = s.stamp()
		return true, nil
	})
}

type moveFunc func(app *entity.Application) (changed bool, err error)

// errUnchanged aborts the update without writing
var errUnchanged = errors.New("unchanged")

func (s *Service) move(ctx context.Context, id int64, actor, note string, fn moveFunc) (bool, error) {
	var previous entity.ApplicationStatus

	app, err := s.apps.Update(ctx, id, func(app *entity.Application) error {
		previous = app.Status
		changed, err := fn(app)
		if err != nil {
			return err
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	entry := &entity.HistoryEntry{
		CaseID:         app.CaseID,
		Entity:         app.Kind(),
		EntityID:       app.ID,
		Action:         "status_change",
		PreviousStatus: string(previous),
		NewStatus:      string(app.Status),
		Actor:          actor,
		Note:           note,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to record application history: %w", err)
	}
	return true, nil
}

func (s *Service) stamp() *time.Time {
	t := s.now().UTC()
	return &t
}
