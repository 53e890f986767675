// Package statemachine provides a type-safe transition table for string-typed
// states and events.
//
// Unlike an in-memory machine that owns its current state, a Table is stateless:
// the current state lives on the record being modified (a database row or
// document), and the table only answers "where does this event take me from
// here?". One table value can be shared by every goroutine and every record.
//
// # Usage
//
//	type Status string
//	type Event string
//
//	var transitions = statemachine.MustNew(
//	    statemachine.WithTransition[Status, Event]("draft", "in_review", "submit"),
//	    statemachine.WithFanIn[Status, Event]("archive", "archived", "draft", "in_review"),
//	)
//
//	next, err := transitions.Next(ctx, record.Status, "submit", nil)
//	if err != nil {
//	    return err
//	}
//	record.Status = next
//
// # Guards
//
// Guards veto a transition based on runtime data. When several transitions are
// registered for the same state and event, the first one whose guards all pass
// wins, which allows priority-ordered branching:
//
//	isOwner := func(ctx context.Context, from Status, evt Event, data any) bool {
//	    role, ok := data.(string)
//	    return ok && role == "owner"
//	}
//
// # Errors
//
// Next returns a *TransitionError wrapping ErrNoTransition when nothing is
// defined for the pair, or ErrGuardRejected when every candidate was blocked
// by a guard. Match either with errors.Is.
package statemachine
