package statemachine

import (
	"context"
)

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard[S, E ~string] func(ctx context.Context, from S, event E, data any) bool

// Transition defines a state change triggered by an event, with optional guards.
type Transition[S, E ~string] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E] // All must pass for transition to proceed
}

// Machine resolves transitions for states that are stored elsewhere (a database
// row, a document). It holds no current state of its own, so one Machine can be
// shared by every record of the same kind.
type Machine[S, E ~string] interface {
	Next(ctx context.Context, from S, event E, data any) (S, error)
	CanFire(ctx context.Context, from S, event E, data any) bool
	Events(from S) []E
}
