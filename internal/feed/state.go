package feed

import (
	"fmt"
	"sync"

	"github.com/chillman12/dexter3.0/internal/domain"
)

// transitions is the allowed state transition table for the connection
// lifecycle. Close is special-cased: it may force Disconnected from any
// state, which the table encodes by every state allowing Disconnected.
var transitions = map[domain.ConnectionState][]domain.ConnectionState{
	domain.StateDisconnected: {domain.StateConnecting, domain.StateDisconnected, domain.StateError},
	domain.StateConnecting:   {domain.StateConnected, domain.StateDisconnected, domain.StateError},
	domain.StateConnected:    {domain.StateDisconnected, domain.StateError},
	domain.StateError:        {domain.StateConnecting, domain.StateDisconnected, domain.StateError},
}

// stateMachine guards the single ConnectionState instance. All mutations go
// through transition; reads are safe from any goroutine.
type stateMachine struct {
	mu       sync.RWMutex
	state    domain.ConnectionState
	onChange func(from, to domain.ConnectionState)
}

func newStateMachine(onChange func(from, to domain.ConnectionState)) *stateMachine {
	return &stateMachine{
		state:    domain.StateDisconnected,
		onChange: onChange,
	}
}

// current returns the present connection state.
func (m *stateMachine) current() domain.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// transition moves the machine to next if the transition table allows it.
func (m *stateMachine) transition(next domain.ConnectionState) error {
	m.mu.Lock()
	from := m.state
	allowed := false
	for _, s := range transitions[from] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return fmt.Errorf("feed: %s -> %s: %w", from, next, domain.ErrInvalidTransition)
	}
	m.state = next
	m.mu.Unlock()

	if m.onChange != nil && from != next {
		m.onChange(from, next)
	}
	return nil
}
