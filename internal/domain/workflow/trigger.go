package workflow

// Trigger represents an operator action that can cause a state transition
type Trigger string

const (
	TriggerSubmit           Trigger = "submit"
	TriggerApprove          Trigger = "approve"
	TriggerReject           Trigger = "reject"
	TriggerVerifyHR         Trigger = "verify_hr"
	TriggerVerifyBudget     Trigger = "verify_budget"
	TriggerSend             Trigger = "send"
	TriggerAccept           Trigger = "accept"
	TriggerDecline          Trigger = "decline"
	TriggerWithdraw         Trigger = "withdraw"
	TriggerStartCheck       Trigger = "start_check"
	TriggerClear            Trigger = "clear"
	TriggerFlag             Trigger = "flag"
	TriggerAbortCheck       Trigger = "abort_check"
	TriggerOverride         Trigger = "override"
	TriggerRequestSignature Trigger = "request_signature"
	TriggerSign             Trigger = "sign"
	TriggerActivate         Trigger = "activate"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
