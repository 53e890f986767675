package statemachine

import (
	"fmt"
)

// Option configures a transition table during construction.
type Option[S, E ~string] func(*Table[S, E]) error

// New creates a transition table from the given options.
func New[S, E ~string](opts ...Option[S, E]) (*Table[S, E], error) {
	t := newTable[S, E]()

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// MustNew creates a transition table and panics if any option fails to apply.
// Tables are usually package-level definitions, so a bad one should stop startup.
func MustNew[S, E ~string](opts ...Option[S, E]) *Table[S, E] {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create transition table: %v", err))
	}
	return t
}

// WithTransition adds a single transition.
func WithTransition[S, E ~string](from, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(t *Table[S, E]) error {
		return t.add(Transition[S, E]{From: from, To: to, Event: event, Guards: compact(guards)})
	}
}

// WithFanIn adds the same event/target pair for several source states.
func WithFanIn[S, E ~string](event E, to S, from ...S) Option[S, E] {
	return func(t *Table[S, E]) error {
		for _, f := range from {
			if err := t.add(Transition[S, E]{From: f, To: to, Event: event}); err != nil {
				return fmt.Errorf("failed to add transition %s->%s on %s: %w", f, to, event, err)
			}
		}
		return nil
	}
}

// WithTransitions adds multiple transitions at once.
func WithTransitions[S, E ~string](transitions []Transition[S, E]) Option[S, E] {
	return func(t *Table[S, E]) error {
		for i, tr := range transitions {
			tr.Guards = compact(tr.Guards)
			if err := t.add(tr); err != nil {
				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, tr.From, tr.To, tr.Event, err)
			}
		}
		return nil
	}
}

func compact[S, E ~string](guards []Guard[S, E]) []Guard[S, E] {
	out := guards[:0:0]
	for _, g := range guards {
		if g != nil {
			out = append(out, g)
		}
	}
	return out
}
