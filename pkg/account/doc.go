// Package account models a user's subscription account: its lifecycle status,
// billing period bounds and usage snapshot.
//
// Lifecycle changes go through a single transition table (Transitions):
//
//	active   --pause-->          paused
//	paused   --resume-->         active
//	active, trialing, past_due, paused --cancel--> canceled
//	trialing, past_due --activate--> active
//	active, trialing   --payment_failed--> past_due
//	trialing, past_due, canceled, paused --expire--> expired
//	active, trialing, past_due --renew--> active (period rolls forward)
//
// Anything else returns an *InvalidTransitionError, which matches
// ErrInvalidTransition with errors.Is.
//
// Quota checks take the resolved tier explicitly:
//
//	reached, err := acct.HasReachedMonthlyLimit(t) // ErrTierMismatch if t is not acct's tier
//
// Service persists lifecycle changes through a Store with optimistic locking
// on Account.Version. Usage counters are never written by Save; they change
// only through the Store's conditional operations (see package usage).
package account
