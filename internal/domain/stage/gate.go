package stage

import (
	"fmt"

	"github.com/garyjia/recruitment-engine/internal/domain/entity"
	"github.com/garyjia/recruitment-engine/internal/domain/workflow"
)

// Rules are the configurable thresholds used by the gates
type Rules struct {
	MinCommitteeMembers   int
	MinVerifiedReferences int
}

// DefaultRules require three committee members and two verified references
var DefaultRules = Rules{MinCommitteeMembers: 3, MinVerifiedReferences: 2}

// Unmet returns the unmet conditions for leaving s, in evaluation order.
// An empty result means the stage is complete.
func Unmet(s Stage, snap *Snapshot, rules Rules) []string {
	switch s {
	case TOR:
		if snap.TOR == nil {
			return []string{"TOR has not been drafted"}
		}
		if snap.TOR.Status != workflow.StateApproved {
			return []string{fmt.Sprintf("TOR is %s, not approved", snap.TOR.Status)}
		}
	case SRFHRReview, SRFFinanceReview:
		return SRFUnmet(snap.SRF)
	case VacancyAnnouncement:
		for _, v := range snap.Vacancies {
			if v.Status == entity.VacancyStatusPublished {
				return nil
			}
		}
		return []string{"no vacancy announcement is published"}
	case Applications:
		if len(snap.Applications) == 0 {
			return []string{"no application has been received"}
		}
	case Committee:
		return CommitteeUnmet(snap.Committee, snap.Members, rules.MinCommitteeMembers)
	case Longlisting:
		if snap.Longlist != nil {
			for _, c := range snap.Longlist.Candidates {
				if c.IsLonglisted {
					return nil
				}
			}
		}
		return []string{"no candidate is longlisted"}
	case Shortlisting:
		if snap.Shortlist != nil {
			for _, c := range snap.Shortlist.Candidates {
				if c.IsShortlisted {
					return nil
				}
			}
		}
		return []string{"no candidate is shortlisted"}
	case WrittenTest:
		if snap.Test != nil {
			for _, c := range snap.Test.Candidates {
				if c.IsPassed {
					return nil
				}
			}
		}
		return []string{"no candidate passed the written test"}
	case Interview:
		return InterviewUnmet(snap.Interview)
	case SelectionReport:
		if snap.Report == nil {
			return []string{"selection report has not been drafted"}
		}
		if snap.Report.Status != workflow.StateApproved {
			return []string{fmt.Sprintf("selection report is %s, not approved", snap.Report.Status)}
		}
	case Offer:
		for _, o := range snap.Offers {
			if o.Status == workflow.StateAccepted {
				return nil
			}
		}
		return []string{"no offer has been accepted"}
	case SanctionCheck:
		if unmet := SelectedUnmet(snap.Selected); len(unmet) > 0 {
			return unmet
		}
		if snap.Sanction == nil {
			return []string{"sanction check has not been started"}
		}
		if snap.Sanction.Status != workflow.StateCleared {
			return []string{fmt.Sprintf("sanction check is %s, not cleared", snap.Sanction.Status)}
		}
	case BackgroundCheck:
		if unmet := SelectedUnmet(snap.Selected); len(unmet) > 0 {
			return unmet
		}
		if snap.Background == nil {
			return []string{"background check has not been started"}
		}
		if snap.Background.Status != entity.BackgroundCompleted {
			unmet := BackgroundUnmet(snap.Background, snap.References, rules.MinVerifiedReferences)
			return append([]string{"background check is not completed"}, unmet...)
		}
	case Contract:
		unmet := SelectedUnmet(snap.Selected)
		switch {
		case snap.Contract == nil:
			unmet = append(unmet, "contract has not been drafted")
		case snap.Contract.Status != workflow.StateActive:
			unmet = append(unmet, fmt.Sprintf("contract is %s, not active", snap.Contract.Status))
		}
		return append(unmet, ChecklistUnmet(snap.Checklist)...)
	default:
		return []string{fmt.Sprintf("unknown stage %d", int(s))}
	}
	return nil
}

// SelectedUnmet refuses a selected candidate who was rejected or withdrew
func SelectedUnmet(app *entity.Application) []string {
	if app == nil || !app.Status.IsDropped() {
		return nil
	}
	return []string{fmt.Sprintf("selected application is %s", app.Status)}
}

// SRFUnmet lists what keeps an SRF from counting as approved
func SRFUnmet(srf *entity.SRF) []string {
	if srf == nil {
		return []string{"SRF has not been drafted"}
	}
	var unmet []string
	if srf.Status != workflow.StateApproved {
		unmet = append(unmet, fmt.Sprintf("SRF is %s, not approved", srf.Status))
	}
	unmet = append(unmet, SRFVerificationUnmet(srf)...)
	return unmet
}

// SRFVerificationUnmet lists the missing SRF verifications
func SRFVerificationUnmet(srf *entity.SRF) []string {
	var unmet []string
	if !srf.HRVerified {
		unmet = append(unmet, "HR verification missing")
	}
	if !srf.BudgetVerified {
		unmet = append(unmet, "budget verification missing")
	}
	return unmet
}

// CommitteeUnmet checks the committee composition
func CommitteeUnmet(c *entity.Committee, members []*entity.Member, minMembers int) []string {
	if c == nil {
		return []string{"committee has not been formed"}
	}
	if len(members) < minMembers {
		return []string{fmt.Sprintf("committee has %d of %d required members", len(members), minMembers)}
	}
	return nil
}

// InterviewUnmet requires at least one evaluation and a ranking that is not stale
func InterviewUnmet(v *InterviewView) []string {
	if v == nil || v.Interview == nil {
		return []string{"interview has not been scheduled"}
	}
	var unmet []string
	if len(v.Evaluations) == 0 {
		unmet = append(unmet, "no interview evaluation recorded")
	}
	if v.Interview.RankedAt == nil || len(v.Results) == 0 {
		unmet = append(unmet, "candidates have not been ranked since the last evaluation")
	}
	return unmet
}

// BackgroundUnmet names every background-check track that has not reached
// its verified or cleared state
func BackgroundUnmet(bg *entity.BackgroundCheck, refs []*entity.Reference, minReferences int) []string {
	var unmet []string

	verified := 0
	for _, r := range refs {
		if r.Status == entity.TrackVerified {
			verified++
		}
	}
	if verified < minReferences {
		unmet = append(unmet, fmt.Sprintf("%s: %d of %d verified", entity.TrackReferences, verified, minReferences))
	}
	if bg.GuaranteeLetter != entity.TrackVerified {
		unmet = append(unmet, fmt.Sprintf("%s: %s", entity.TrackGuaranteeLetter, trackLabel(bg.GuaranteeLetter)))
	}
	if bg.HomeAddress != entity.TrackVerified {
		unmet = append(unmet, fmt.Sprintf("%s: %s", entity.TrackHomeAddress, trackLabel(bg.HomeAddress)))
	}
	if bg.CriminalRecord != entity.TrackCleared {
		unmet = append(unmet, fmt.Sprintf("%s: %s", entity.TrackCriminalRecord, trackLabel(bg.CriminalRecord)))
	}
	return unmet
}

// ChecklistUnmet names the required checklist items that are not checked
func ChecklistUnmet(items []*entity.ChecklistItem) []string {
	var unmet []string
	for _, item := range items {
		if item.Required && !item.Checked {
			unmet = append(unmet, fmt.Sprintf("checklist item %q not checked", item.Name))
		}
	}
	return unmet
}

func trackLabel(s entity.TrackStatus) string {
	if s == "" {
		return string(entity.TrackPending)
	}
	return string(s)
}
