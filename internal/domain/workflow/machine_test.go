package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StatePendingApproval, false},
		{StateHRReview, false},
		{StateFinanceReview, false},
		{StateRejected, false},
		{StateSent, false},
		{StateChecking, false},
		{StateFlagged, false},
		{StateSigned, false},
		{StateApproved, true},
		{StateAccepted, false},
		{StateDeclined, true},
		{StateWithdrawn, true},
		{StateCleared, true},
		{StateActive, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"approval state", StateHRReview, true},
		{"contract state", StatePendingSignature, true},
		{"unknown state", State("archived"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StateDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_PanicsOnInvalidStates(t *testing.T) {
	cases := map[string]func(){
		"configure": func() { NewBuilder().Configure(State("archived")) },
		"build":     func() { NewBuilder().Build(State("archived")) },
		"permit":    func() { NewBuilder().Configure(StateDraft).Permit(TriggerSubmit, State("archived")) },
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%s should panic on invalid state", name)
				}
			}()
			fn()
		})
	}
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePendingApproval)

	machine := builder.Build(StateDraft)

	if !machine.CanFire(TriggerSubmit) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if err := machine.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != StatePendingApproval {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StatePendingApproval)
	}
}

func TestStateConfiguration_PermitIf_GuardRefuses(t *testing.T) {
	refusal := errors.New("budget not verified")

	builder := NewBuilder()
	builder.Configure(StateFinanceReview).
		PermitIf(TriggerApprove, StateApproved, func(ctx context.Context) error {
			return refusal
		})

	machine := builder.Build(StateFinanceReview)

	err := machine.Fire(context.Background(), TriggerApprove)
	if err == nil {
		t.Fatal("Fire() should fail when guard refuses")
	}
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if !errors.Is(err, refusal) {
		t.Errorf("Fire() error = %v, should carry the guard's reason", err)
	}
	if machine.State() != StateFinanceReview {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateFinanceReview, machine.State())
	}
}

func TestStateConfiguration_PermitIf_FirstPassingGuardWins(t *testing.T) {
	type flagKey struct{}

	builder := NewBuilder()
	builder.Configure(StateChecking).
		PermitIf(TriggerClear, StateCleared, func(ctx context.Context) error {
			if ctx.Value(flagKey{}) == true {
				return errors.New("flagged")
			}
			return nil
		}).
		PermitIf(TriggerClear, StateFlagged, func(ctx context.Context) error {
			return nil
		})

	m1 := builder.Build(StateChecking)
	if err := m1.Fire(context.Background(), TriggerClear); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m1.State() != StateCleared {
		t.Errorf("State = %v, want %v", m1.State(), StateCleared)
	}

	m2 := builder.Build(StateChecking)
	ctx := context.WithValue(context.Background(), flagKey{}, true)
	if err := m2.Fire(ctx, TriggerClear); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if m2.State() != StateFlagged {
		t.Errorf("State = %v, want %v", m2.State(), StateFlagged)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePendingApproval)

	machine := builder.Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateDraft {
		t.Errorf("State should remain %v, got %v", StateDraft, machine.State())
	}

	unconfigured := NewBuilder().Build(StateSigned)
	if err := unconfigured.Fire(context.Background(), TriggerActivate); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() without configuration error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateHRReview).
		Permit(TriggerVerifyHR, StateFinanceReview).
		Permit(TriggerReject, StateDraft).
		Permit(TriggerVerifyBudget, StateHRReview)

	machine := builder.Build(StateHRReview)

	got := machine.PermittedTriggers()
	want := []Trigger{TriggerReject, TriggerVerifyBudget, TriggerVerifyHR}
	if len(got) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if n := len(NewBuilder().Build(StateDraft).PermittedTriggers()); n != 0 {
		t.Errorf("PermittedTriggers() without configuration returned %d triggers, want 0", n)
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSend, StateSent)

	machine1 := builder.Build(StateDraft)
	machine2 := builder.Build(StateDraft)

	if err := machine1.Fire(context.Background(), TriggerSend); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine2.State() != StateDraft {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateDraft)
	}

	// configuring the builder afterwards must not leak into built machines
	builder.Configure(StateDraft).Permit(TriggerSign, StateSigned)
	if machine2.CanFire(TriggerSign) {
		t.Error("built machine picked up configuration added after Build()")
	}
}

func TestStateMachine_OfferLifecycle(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSend, StateSent)
	builder.Configure(StateSent).
		Permit(TriggerAccept, StateAccepted).
		Permit(TriggerDecline, StateDeclined)

	machine := builder.Build(StateDraft)

	steps := []struct {
		trigger       Trigger
		expectedState State
	}{
		{TriggerSend, StateSent},
		{TriggerDecline, StateDeclined},
	}

	for i, step := range steps {
		if err := machine.Fire(context.Background(), step.trigger); err != nil {
			t.Errorf("Step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}
		if machine.State() != step.expectedState {
			t.Errorf("Step %d: State after Fire(%v) = %v, want %v", i, step.trigger, machine.State(), step.expectedState)
		}
	}

	if !machine.State().IsTerminal() {
		t.Error("declined offer should be terminal")
	}
	if len(machine.PermittedTriggers()) != 0 {
		t.Errorf("terminal state should have no permitted triggers, got %v", machine.PermittedTriggers())
	}
}
