package pipeline

import (
	"errors"
	"fmt"
)

// State is a pipeline run state.
type State string

// Run states in the order a successful run passes through them.
const (
	StateIdle           State = "Idle"
	StateIngesting      State = "Ingesting"
	StateStagingBuilt   State = "StagingBuilt"
	StateLeadDimsBuilt  State = "LeadDimsBuilt"
	StateCoreDimsBuilt  State = "CoreDimsBuilt"
	StateSalesDimsBuilt State = "SalesDimsBuilt"
	StateLeadFactBuilt  State = "LeadFactBuilt"
	StateSaleFactBuilt  State = "SaleFactBuilt"
	StateComplete       State = "Complete"
	StateFailed         State = "Failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// reserved states cannot be reached by a step.
func (s State) reserved() bool {
	return s == StateIdle || s == StateIngesting || s.Terminal()
}

// Known reports whether s is one of the run states.
func (s State) Known() bool {
	switch s {
	case StateIdle, StateIngesting, StateStagingBuilt, StateLeadDimsBuilt, StateCoreDimsBuilt,
		StateSalesDimsBuilt, StateLeadFactBuilt, StateSaleFactBuilt, StateComplete, StateFailed:
		return true
	}
	return false
}

// ErrInvalidTransition is wrapped by every rejected transition.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError is returned when a transition is not allowed from the
// current state.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// TransitionFunc observes state changes.
type TransitionFunc func(from, to State)

// Machine tracks the state of one run. Successful transitions follow a fixed
// sequence; Failed is reachable from any non-terminal state.
type Machine struct {
	sequence []State
	pos      int
	current  State
	observe  TransitionFunc
}

// NewMachine builds the state sequence for plan: Idle, Ingesting, the state
// reached by each step that declares one, then Complete.
func NewMachine(plan Plan, observe TransitionFunc) *Machine {
	seq := []State{StateIdle, StateIngesting}
	for _, s := range plan.Steps {
		if s.Reaches != "" {
			seq = append(seq, s.Reaches)
		}
	}
	seq = append(seq, StateComplete)
	return &Machine{sequence: seq, current: StateIdle, observe: observe}
}

// Current returns the current state.
func (m *Machine) Current() State {
	return m.current
}

// Sequence returns the states of a successful run in order.
func (m *Machine) Sequence() []State {
	return append([]State(nil), m.sequence...)
}

// Advance moves to the next state of the sequence. Any other target is
// rejected.
func (m *Machine) Advance(to State) error {
	if m.current.Terminal() || m.pos+1 >= len(m.sequence) || m.sequence[m.pos+1] != to {
		return &TransitionError{From: m.current, To: to}
	}
	m.pos++
	m.set(to)
	return nil
}

// Fail moves to Failed.
func (m *Machine) Fail() error {
	if m.current.Terminal() {
		return &TransitionError{From: m.current, To: StateFailed}
	}
	m.set(StateFailed)
	return nil
}

func (m *Machine) set(to State) {
	from := m.current
	m.current = to
	if m.observe != nil {
		m.observe(from, to)
	}
}
