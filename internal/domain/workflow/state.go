package workflow

// State represents a lifecycle state of a gated recruitment document
type State string

const (
	// Approval documents (TOR, SRF, selection report)
	StateDraft           State = "draft"
	StatePendingApproval State = "pending_approval"
	StateHRReview        State = "hr_review"
	StateFinanceReview   State = "finance_review"
	StateApproved        State = "approved"
	StateRejected        State = "rejected"

	// Offer
	StateSent     State = "sent"
	StateAccepted State = "accepted"
	StateDeclined State = "declined"
	// StateWithdrawn closes an offer whose candidate left the process
	StateWithdrawn State = "withdrawn"

	// Sanction check
	StatePending  State = "pending"
	StateChecking State = "checking"
	StateCleared  State = "cleared"
	StateFlagged  State = "flagged"

	// Contract
	StatePendingSignature State = "pending_signature"
	StateSigned           State = "signed"
	StateActive           State = "active"
)

var validStates = map[State]bool{
	StateDraft:            true,
	StatePendingApproval:  true,
	StateHRReview:         true,
	StateFinanceReview:    true,
	StateApproved:         true,
	StateRejected:         true,
	StateSent:             true,
	StateAccepted:         true,
	StateDeclined:         true,
	StateWithdrawn:        true,
	StatePending:          true,
	StateChecking:         true,
	StateCleared:          true,
	StateFlagged:          true,
	StatePendingSignature: true,
	StateSigned:           true,
	StateActive:           true,
}

// Rejected is absent: a rejected TOR or report goes back to editing.
// Accepted is absent: an accepted offer is withdrawn when its candidate leaves.
var terminalStates = map[State]bool{
	StateApproved:  true,
	StateDeclined:  true,
	StateWithdrawn: true,
	StateCleared:   true,
	StateActive:    true,
}

// IsTerminal returns true if no further transitions are expected from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
