package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("transition needs a source state, a target state and an event")
	ErrInvalidEvent      = errors.New("event must not be empty")
	ErrNoTransition      = errors.New("no transition defined")
	ErrGuardRejected     = errors.New("transition rejected by guard")
)

// TransitionError reports the state and event a lookup failed for.
// Cause is ErrNoTransition or ErrGuardRejected and is matched by errors.Is.
type TransitionError struct {
	From  string
	Event string
	Cause error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %q from state %q", e.Cause, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return e.Cause }
