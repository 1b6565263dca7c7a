package event

// Type identifies the type of domain event
type Type string

const (
	TypeCaseCreated          Type = "case.created"
	TypeCaseAdvanced         Type = "case.advanced"
	TypeCaseCompleted        Type = "case.completed"
	TypeCaseCancelled        Type = "case.cancelled"
	TypeApprovalTransitioned Type = "approval.transitioned"
	TypeApplicationUpdated   Type = "application.updated"
	TypeRankingComputed      Type = "ranking.computed"
	TypeSanctionScreened     Type = "sanction.screened"
	TypeOverrideGranted      Type = "override.granted"
	TypeOverrideRevoked      Type = "override.revoked"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeCaseCreated,
		TypeCaseAdvanced,
		TypeCaseCompleted,
		TypeCaseCancelled,
		TypeApprovalTransitioned,
		TypeApplicationUpdated,
		TypeRankingComputed,
		TypeSanctionScreened,
		TypeOverrideGranted,
		TypeOverrideRevoked:
		return true
	default:
		return false
	}
}

// All returns every defined event type
func All() []Type {
	return []Type{
		TypeCaseCreated,
		TypeCaseAdvanced,
		TypeCaseCompleted,
		TypeCaseCancelled,
		TypeApprovalTransitioned,
		TypeApplicationUpdated,
		TypeRankingComputed,
		TypeSanctionScreened,
		TypeOverrideGranted,
		TypeOverrideRevoked,
	}
}
