package account

import (
	"context"
	"errors"

	"github.com/canvascue/accounting/pkg/statemachine"
)

// Status is the lifecycle state of a subscription account.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// HoldsActiveSlot reports whether the status counts toward the
// one-active-account-per-user limit.
func (s Status) HoldsActiveSlot() bool {
	return s == StatusActive || s == StatusTrialing
}

// Event names a lifecycle change.
type Event string

const (
	EventPause         Event = "pause"
	EventResume        Event = "resume"
	EventCancel        Event = "cancel"
	EventActivate      Event = "activate"
	EventPaymentFailed Event = "payment_failed"
	EventExpire        Event = "expire"
	EventRenew         Event = "renew"
)

// Transitions is the lifecycle table every status change goes through.
var Transitions = statemachine.MustNew(
	statemachine.WithTransition(StatusActive, StatusPaused, EventPause),
	statemachine.WithTransition(StatusPaused, StatusActive, EventResume),
	statemachine.WithFanIn(EventCancel, StatusCanceled, StatusActive, StatusTrialing, StatusPastDue, StatusPaused),
	statemachine.WithFanIn(EventActivate, StatusActive, StatusTrialing, StatusPastDue),
	statemachine.WithFanIn(EventPaymentFailed, StatusPastDue, StatusActive, StatusTrialing),
	statemachine.WithFanIn(EventExpire, StatusExpired, StatusTrialing, StatusPastDue, StatusCanceled, StatusPaused),
	statemachine.WithFanIn(EventRenew, StatusActive, StatusActive, StatusTrialing, StatusPastDue),
)

// Next resolves the status reached by firing ev from s.
func Next(s Status, ev Event) (Status, error) {
	next, err := Transitions.Next(context.Background(), s, ev, nil)
	if err != nil {
		if errors.Is(err, statemachine.ErrNoTransition) || errors.Is(err, statemachine.ErrGuardRejected) {
			return s, &InvalidTransitionError{From: s, Event: ev}
		}
		return s, errors.Join(ErrInvalidTransition, err)
	}
	return next, nil
}

// CanFire reports whether ev is allowed from s.
func CanFire(s Status, ev Event) bool {
	return Transitions.CanFire(context.Background(), s, ev, nil)
}
