package editor

import "fmt"

// GuardFunc decides whether a transition may fire. Guards are evaluated at
// fire time against the session that owns the machine.
type GuardFunc func() bool

type transition struct {
	toState State
	guard   GuardFunc
}

// Machine tracks the current session state and validates transitions.
type Machine struct {
	current     State
	transitions map[State]map[Trigger][]transition
}

// NewMachine creates a machine with no transitions configured.
func NewMachine(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	return &Machine{
		current:     initial,
		transitions: make(map[State]map[Trigger][]transition),
	}
}

// Permit allows a trigger to move the machine from one state to another.
func (m *Machine) Permit(from State, trigger Trigger, to State) *Machine {
	return m.PermitIf(from, trigger, to, nil)
}

// PermitIf allows a trigger to move the machine from one state to another
// when the guard passes.
func (m *Machine) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Machine {
	if !from.IsValid() || !to.IsValid() {
		panic(fmt.Sprintf("invalid transition %s -> %s", from, to))
	}
	if m.transitions[from] == nil {
		m.transitions[from] = make(map[Trigger][]transition)
	}
	m.transitions[from][trigger] = append(m.transitions[from][trigger], transition{toState: to, guard: guard})
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger has at least one transition configured
// from the current state. Guards are not evaluated here.
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.transitions[m.current][trigger]) > 0
}

// Fire attempts the trigger, moving to the target state of the first
// transition whose guard passes.
func (m *Machine) Fire(trigger Trigger) error {
	candidates := m.transitions[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard() {
			m.current = t.toState
			return nil
		}
	}
	return fmt.Errorf("%w: trigger %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers that have transitions configured
// from the current state.
func (m *Machine) PermittedTriggers() []Trigger {
	configured := m.transitions[m.current]
	triggers := make([]Trigger, 0, len(configured))
	for trigger := range configured {
		triggers = append(triggers, trigger)
	}
	return triggers
}

// newSessionMachine wires the dialog-session lifecycle:
//
//	Idle -open-> Editing
//	Editing -markAbsent/markPresent-> Editing
//	Editing -save-> Submitting (guarded by field validation)
//	Submitting -succeed-> Success, -fail-> Failure
//	Editing|Submitting -cancel-> Cancelled
//	Success|Failure|Cancelled -close-> Idle
func newSessionMachine(saveGuard GuardFunc) *Machine {
	m := NewMachine(StateIdle)
	m.Permit(StateIdle, TriggerOpen, StateEditing)
	m.Permit(StateEditing, TriggerMarkAbsent, StateEditing)
	m.Permit(StateEditing, TriggerMarkPresent, StateEditing)
	m.PermitIf(StateEditing, TriggerSave, StateSubmitting, saveGuard)
	m.Permit(StateEditing, TriggerCancel, StateCancelled)
	m.Permit(StateSubmitting, TriggerSucceed, StateSuccess)
	m.Permit(StateSubmitting, TriggerFail, StateFailure)
	m.Permit(StateSubmitting, TriggerCancel, StateCancelled)
	m.Permit(StateSuccess, TriggerClose, StateIdle)
	m.Permit(StateFailure, TriggerClose, StateIdle)
	m.Permit(StateCancelled, TriggerClose, StateIdle)
	return m
}
