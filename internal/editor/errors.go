package editor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrGuardFailed is returned when a transition's guard rejects the
	// trigger.
	ErrGuardFailed = errors.New("guard condition failed")
)

// ValidationError carries field-level errors that block a save. The session
// stays in the editing state so the operator can fix the fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}
