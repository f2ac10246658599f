// Package editor models the single-record attendance correction dialog as a
// state machine: one session per dialog, created on open and discarded on
// close, whether the save succeeded, failed or was cancelled.
package editor

// State is a dialog-session state.
type State string

const (
	StateIdle       State = "IDLE"
	StateEditing    State = "EDITING"
	StateSubmitting State = "SUBMITTING"
	StateSuccess    State = "SUCCESS"
	StateFailure    State = "FAILURE"
	StateCancelled  State = "CANCELLED"
)

var validStates = map[State]bool{
	StateIdle:       true,
	StateEditing:    true,
	StateSubmitting: true,
	StateSuccess:    true,
	StateFailure:    true,
	StateCancelled:  true,
}

// Settled states only permit Close; no edit or save can happen anymore.
var settledStates = map[State]bool{
	StateSuccess:   true,
	StateFailure:   true,
	StateCancelled: true,
}

// IsValid returns true if the state is a known session state.
func (s State) IsValid() bool {
	return validStates[s]
}

// IsSettled returns true once the session's outcome is decided and only
// closing remains.
func (s State) IsSettled() bool {
	return settledStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
