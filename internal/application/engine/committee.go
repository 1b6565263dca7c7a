package engine

import (
	"context"
	"fmt"

	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/stage"
	"github.com/garyjia/recruitment-engine/pkg/utils"
)

var memberRoles = map[string]bool{
	entity.MemberRoleChair:     true,
	entity.MemberRoleHR:        true,
	entity.MemberRoleTechnical: true,
	entity.MemberRoleObserver:  true,
}

// FormCommittee forms the case's evaluation committee
func (e *Engine) FormCommittee(ctx context.Context, caseID int64, name, actor string) (*entity.Committee, error) {
	if err := required("name", name); err != nil {
		return nil, err
	}

	var committee *entity.Committee
	err := e.mutate(ctx, caseID, "committee.form", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Committee); err != nil {
			return err
		}
		existing, err := latest(ctx, e.stores.Committees, tx.c.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Precondition(tx.action, "committee is already formed")
		}

		committee = &entity.Committee{CaseID: tx.c.ID, Name: utils.SanitizeString(name), FormedAt: e.now().UTC()}
		if err := e.stores.Committees.Create(ctx, committee); err != nil {
			return err
		}
		return tx.record(ctx, committee, "create", "", "", committee.Name)
	})
	if err != nil {
		return nil, err
	}
	return committee, nil
}

// MemberInput describes a committee member
type MemberInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsChair bool   `json:"is_chair"`
}

// AddMember seats a member on the committee. A committee has at most one chair.
func (e *Engine) AddMember(ctx context.Context, caseID int64, in MemberInput, actor string) (*entity.Member, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = entity.MemberRoleTechnical
	}
	if !memberRoles[in.Role] {
		return nil, apperror.Validation("role", "unknown committee role %q", in.Role)
	}
	if in.Email != "" {
		if err := utils.ValidateEmail(in.Email); err != nil {
			return nil, apperror.Validation("email", "%v", err)
		}
	}

	var member *entity.Member
	err := e.mutate(ctx, caseID, "committee.add_member", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Committee); err != nil {
			return err
		}
		committee, err := latest(ctx, e.stores.Committees, tx.c.ID)
		if err != nil {
			return err
		}
		if committee == nil {
			return apperror.Precondition(tx.action, "committee has not been formed")
		}

		if in.IsChair || in.Role == entity.MemberRoleChair {
			members, err := byParent(ctx, e.stores.Members, committee.ID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if m.IsChair {
					return apperror.Validation("is_chair", "committee already has a chair: %s", m.Name)
				}
			}
		}

		member = &entity.Member{
			CommitteeID: committee.ID,
			CaseID:      tx.c.ID,
			Name:        utils.SanitizeString(in.Name),
			Email:       in.Email,
			Role:        in.Role,
			IsChair:     in.IsChair || in.Role == entity.MemberRoleChair,
		}
		if err := e.stores.Members.Create(ctx, member); err != nil {
			return err
		}
		return tx.record(ctx, member, "create", "", "", member.Role)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember takes a member off the committee together with their declaration
func (e *Engine) RemoveMember(ctx context.Context, caseID, memberID int64, actor string) error {
	return e.mutate(ctx, caseID, "committee.remove_member", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.at(ctx, stage.Committee); err != nil {
			return err
		}
		member, err := owned(ctx, e.stores.Members, "committee member", memberID, tx.c.ID)
		if err != nil {
			return err
		}

		decl, err := e.stores.Declarations.GetByIndex(ctx, entity.IndexRef, entity.FormatID(member.ID))
		if err != nil {
			return err
		}
		for _, d := range decl {
			if _, err := e.stores.Declarations.Delete(ctx, d.ID); err != nil {
				return err
			}
		}

		if _, err := e.stores.Members.Delete(ctx, member.ID); err != nil {
			return err
		}
		return tx.record(ctx, member, "delete", "", "", member.Name)
	})
}

// DeclareConflict records or replaces a member's conflict-of-interest
// declaration. Declarations are informational and do not gate advancement.
func (e *Engine) DeclareConflict(ctx context.Context, caseID, memberID int64, hasConflict bool, details, actor string) (*entity.ConflictOfInterestDeclaration, error) {
	if hasConflict {
		if err := required("details", details); err != nil {
			return nil, err
		}
	}

	var decl *entity.ConflictOfInterestDeclaration
	err := e.mutate(ctx, caseID, "committee.declare_conflict", actor, func(ctx context.Context, tx *caseTx) error {
		if err := tx.editable(ctx, stage.Committee, stage.Interview); err != nil {
			return err
		}
		member, err := owned(ctx, e.stores.Members, "committee member", memberID, tx.c.ID)
		if err != nil {
			return err
		}

		existing, err := e.stores.Declarations.GetByIndex(ctx, entity.IndexRef, entity.FormatID(member.ID))
		if err != nil {
			return err
		}

		fill := func(d *entity.ConflictOfInterestDeclaration) error {
			d.HasConflict = hasConflict
			d.Details = details
			d.DeclaredAt = e.now().UTC()
			return nil
		}

		if len(existing) == 0 {
			decl = &entity.ConflictOfInterestDeclaration{MemberID: member.ID, CaseID: tx.c.ID}
			_ = fill(decl)
			err = e.stores.Declarations.Create(ctx, decl)
		} else {
			decl, err = e.stores.Declarations.Update(ctx, existing[0].ID, fill)
		}
		if err != nil {
			return err
		}
		return tx.record(ctx, decl, "declare", "", fmt.Sprintf("has_conflict=%t", hasConflict), details)
	})
	if err != nil {
		return nil, err
	}
	return decl, nil
}
