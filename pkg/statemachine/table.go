package statemachine

import (
	"cmp"
	"context"
	"slices"
)

// Table is an immutable transition table.
// Uses a nested map structure for O(1) transition lookups: [fromState][event][]Transition
type Table[S, E ~string] struct {
	transitions map[S]map[E][]Transition[S, E]
}

func newTable[S, E ~string]() *Table[S, E] {
	return &Table[S, E]{
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
}

func (t *Table[S, E]) add(tr Transition[S, E]) error {
	if tr.From == "" || tr.To == "" || tr.Event == "" {
		return ErrInvalidTransition
	}

	if _, ok := t.transitions[tr.From]; !ok {
		t.transitions[tr.From] = make(map[E][]Transition[S, E])
	}

	// Multiple transitions allowed for same from/event to support guard-based branching
	t.transitions[tr.From][tr.Event] = append(t.transitions[tr.From][tr.Event], tr)
	return nil
}

// Next returns the target state for event fired from state from.
func (t *Table[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	if event == "" {
		return from, ErrInvalidEvent
	}

	candidates := t.transitions[from][event]
	if len(candidates) == 0 {
		return from, &TransitionError{From: string(from), Event: string(event), Cause: ErrNoTransition}
	}

	// First transition with passing guards wins (enables priority ordering)
	for _, tr := range candidates {
		if guardsPass(ctx, tr, data) {
			return tr.To, nil
		}
	}

	return from, &TransitionError{From: string(from), Event: string(event), Cause: ErrGuardRejected}
}

// CanFire reports whether Next would succeed.
func (t *Table[S, E]) CanFire(ctx context.Context, from S, event E, data any) bool {
	_, err := t.Next(ctx, from, event, data)
	return err == nil
}

// Events lists the events defined for a state, sorted for stable output.
// Guards are not evaluated.
func (t *Table[S, E]) Events(from S) []E {
	events := make([]E, 0, len(t.transitions[from]))
	for e := range t.transitions[from] {
		events = append(events, e)
	}
	slices.SortFunc(events, func(a, b E) int { return cmp.Compare(a, b) })
	return events
}

func guardsPass[S, E ~string](ctx context.Context, tr Transition[S, E], data any) bool {
	for _, guard := range tr.Guards {
		if guard != nil && !guard(ctx, tr.From, tr.Event, data) {
			return false
		}
	}
	return true
}
