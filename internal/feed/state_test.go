package feed

import (
	"errors"
	"testing"

	"github.com/chillman12/dexter3.0/internal/domain"
)

func TestStateMachineStartsDisconnected(t *testing.T) {
	m := newStateMachine(nil)
	if m.current() != domain.StateDisconnected {
		t.Errorf("expected initial state disconnected, got %s", m.current())
	}
}

func TestStateMachineAllowedPath(t *testing.T) {
	m := newStateMachine(nil)

	steps := []domain.ConnectionState{
		domain.StateConnecting,
		domain.StateConnected,
		domain.StateError,
		domain.StateConnecting,
		domain.StateConnected,
		domain.StateDisconnected,
	}
	for _, next := range steps {
		if err := m.transition(next); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}
}

func TestStateMachineRejectsIllegalTransition(t *testing.T) {
	m := newStateMachine(nil)

	// Disconnected -> Connected without a handshake is not allowed.
	err := m.transition(domain.StateConnected)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if m.current() != domain.StateDisconnected {
		t.Errorf("state changed on rejected transition: %s", m.current())
	}
}

func TestStateMachineCloseAllowedFromAnyState(t *testing.T) {
	for _, from := range []domain.ConnectionState{
		domain.StateDisconnected,
		domain.StateConnecting,
		domain.StateConnected,
		domain.StateError,
	} {
		m := newStateMachine(nil)
		m.state = from
		if err := m.transition(domain.StateDisconnected); err != nil {
			t.Errorf("close from %s rejected: %v", from, err)
		}
	}
}

func TestStateMachineNotifiesOnChange(t *testing.T) {
	var gotFrom, gotTo domain.ConnectionState
	calls := 0
	m := newStateMachine(func(from, to domain.ConnectionState) {
		gotFrom, gotTo = from, to
		calls++
	})

	if err := m.transition(domain.StateConnecting); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || gotFrom != domain.StateDisconnected || gotTo != domain.StateConnecting {
		t.Errorf("unexpected change notification: calls=%d from=%s to=%s", calls, gotFrom, gotTo)
	}

	// Self-transitions do not notify.
	m.state = domain.StateDisconnected
	if err := m.transition(domain.StateDisconnected); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("self-transition notified, calls=%d", calls)
	}
}
