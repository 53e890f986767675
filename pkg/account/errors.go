package account

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound     = errors.New("subscription account not found")
	ErrActiveAccountExists = errors.New("user already has an active subscription account")
	ErrConcurrentUpdate    = errors.New("subscription account was modified concurrently")
	ErrAccountInactive     = errors.New("subscription account is not active")
	ErrTierMismatch        = errors.New("tier does not match the account's tier")
	ErrInvalidTransition   = errors.New("invalid subscription status transition")
	ErrUsageLimitReached   = errors.New("usage counter is at its limit")
	ErrInvalidResumeDate   = errors.New("resume date must be in the future")
	ErrInvalidAccount      = errors.New("invalid subscription account")

	ErrFailedToLoadAccount   = errors.New("failed to load subscription account")
	ErrFailedToSaveAccount   = errors.New("failed to save subscription account")
	ErrFailedToCreateAccount = errors.New("failed to create subscription account")
	ErrFailedToResolveTier   = errors.New("failed to resolve subscription tier")
)

// InvalidTransitionError reports a lifecycle event that is not allowed from
// the account's current status.
type InvalidTransitionError struct {
	From  Status
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a subscription account in status %q", e.Event, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
