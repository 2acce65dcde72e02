package workflow

import (
	"context"
	"errors"
	"testing"
)

const (
	stateDraft     = State("draft")
	stateSubmitted = State("submitted")
	stateApproved  = State("approved")
	stateDenied    = State("denied")
)

const (
	triggerSubmit  = Trigger("submit")
	triggerApprove = Trigger("approve")
	triggerDeny    = Trigger("deny")
)

func newTestBuilder() Builder {
	b := NewBuilder(stateDraft, stateSubmitted, stateApproved, stateDenied)
	b.Configure(stateDraft).
		Permit(triggerSubmit, stateSubmitted)
	b.Configure(stateSubmitted).
		Permit(triggerApprove, stateApproved).
		Permit(triggerDeny, stateDenied)
	return b
}

func TestMachine_Fire(t *testing.T) {
	m, err := newTestBuilder().Build(stateDraft)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if err := m.Fire(context.Background(), triggerSubmit); err != nil {
		t.Fatalf("Fire(submit) error = %v", err)
	}
	if m.State() != stateSubmitted {
		t.Errorf("State() = %s, want submitted", m.State())
	}

	if err := m.Fire(context.Background(), triggerApprove); err != nil {
		t.Fatalf("Fire(approve) error = %v", err)
	}
	if m.State() != stateApproved {
		t.Errorf("State() = %s, want approved", m.State())
	}
}

func TestMachine_Fire_InvalidTransition(t *testing.T) {
	m, _ := newTestBuilder().Build(stateDraft)

	err := m.Fire(context.Background(), triggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire(approve) from draft error = %v, want ErrInvalidTransition", err)
	}
	if m.State() != stateDraft {
		t.Errorf("failed fire must not move the state, got %s", m.State())
	}
}

func TestMachine_Fire_TerminalState(t *testing.T) {
	m, _ := newTestBuilder().Build(stateDenied)

	err := m.Fire(context.Background(), triggerSubmit)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire from terminal state error = %v, want ErrInvalidTransition", err)
	}
}

func TestMachine_CanFire(t *testing.T) {
	m, _ := newTestBuilder().Build(stateSubmitted)

	if !m.CanFire(triggerApprove) {
		t.Errorf("CanFire(approve) = false, want true")
	}
	if m.CanFire(triggerSubmit) {
		t.Errorf("CanFire(submit) = true, want false")
	}
}

func TestMachine_PermittedTriggers(t *testing.T) {
	m, _ := newTestBuilder().Build(stateSubmitted)

	triggers := m.PermittedTriggers()
	if len(triggers) != 2 {
		t.Errorf("len(PermittedTriggers()) = %d, want 2", len(triggers))
	}

	m, _ = newTestBuilder().Build(stateApproved)
	if got := m.PermittedTriggers(); len(got) != 0 {
		t.Errorf("terminal state should permit no triggers, got %v", got)
	}
}

func TestBuilder_Build_UnknownInitialState(t *testing.T) {
	_, err := newTestBuilder().Build(State("lost"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Build(unknown) error = %v, want ErrInvalidState", err)
	}
}

func TestBuilder_Configure_UnknownStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Configure with an unknown state should panic")
		}
	}()
	NewBuilder(stateDraft).Configure(State("lost"))
}

func TestMachine_Guards(t *testing.T) {
	allow := false
	b := NewBuilder(stateDraft, stateSubmitted)
	b.Configure(stateDraft).
		PermitIf(triggerSubmit, stateSubmitted, func(ctx context.Context) bool { return allow })

	m, _ := b.Build(stateDraft)

	err := m.Fire(context.Background(), triggerSubmit)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire with failing guard error = %v, want ErrGuardFailed", err)
	}

	allow = true
	if err := m.Fire(context.Background(), triggerSubmit); err != nil {
		t.Errorf("Fire with passing guard error = %v", err)
	}
	if m.State() != stateSubmitted {
		t.Errorf("State() = %s, want submitted", m.State())
	}
}

func TestMachine_GuardedFallthrough(t *testing.T) {
	b := NewBuilder(stateDraft, stateSubmitted, stateDenied)
	b.Configure(stateDraft).
		PermitIf(triggerSubmit, stateSubmitted, func(ctx context.Context) bool { return false }).
		PermitIf(triggerSubmit, stateDenied, func(ctx context.Context) bool { return true })

	m, _ := b.Build(stateDraft)
	if err := m.Fire(context.Background(), triggerSubmit); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.State() != stateDenied {
		t.Errorf("fall-through should land on the second target, got %s", m.State())
	}
}

func TestBuilder_BuildIsolation(t *testing.T) {
	b := NewBuilder(stateDraft, stateSubmitted, stateApproved)
	b.Configure(stateDraft).Permit(triggerSubmit, stateSubmitted)

	m, _ := b.Build(stateDraft)

	// Mutating the builder after Build must not affect the built machine.
	b.Configure(stateDraft).Permit(triggerApprove, stateApproved)

	if m.CanFire(triggerApprove) {
		t.Errorf("machine should not see transitions added after Build")
	}
}
