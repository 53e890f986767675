package account

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists subscription accounts.
//
// Usage counters move only through the dedicated conditional operations;
// Create and Save must never overwrite them on an existing record.
type Store interface {
	// Get returns ErrAccountNotFound when no account has the given ID.
	Get(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetActiveByUser returns the account holding the user's active slot.
	// Returns ErrAccountNotFound when the user has none.
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*Account, error)

	// Create inserts a new account with Version 1.
	// Returns ErrActiveAccountExists when the user's active slot is taken.
	Create(ctx context.Context, acct *Account) error

	// Save writes lifecycle fields if the stored Version equals acct.Version,
	// then increments acct.Version. Returns ErrConcurrentUpdate on a version
	// mismatch and ErrActiveAccountExists when the change would give the user
	// a second active account.
	Save(ctx context.Context, acct *Account) error

	// ResetUsageIfDue zeroes the monthly counter when its last reset lies in a
	// different calendar month than now. Reports whether this call reset it.
	ResetUsageIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// IncrementDesignsUsed adds one to the monthly counter if the account is
	// active and the counter is below limit, returning the new value.
	// Returns ErrUsageLimitReached or ErrAccountInactive otherwise.
	IncrementDesignsUsed(ctx context.Context, id uuid.UUID, limit int64) (int64, error)

	// CompareAndSetActiveRequests stores count if the current value equals
	// expected. Returns ErrConcurrentUpdate otherwise.
	CompareAndSetActiveRequests(ctx context.Context, id uuid.UUID, expected, count int64) error

	// ListDue returns up to q.Limit accounts selected by q, ordered by
	// (NextBillingAt, ID). A zero limit returns every match.
	ListDue(ctx context.Context, q DueQuery) ([]*Account, error)
}

// DueQuery selects accounts the sweeper has work for: active or trialing
// accounts past their billing date, past-due accounts past PastDueBefore,
// canceled accounts past the end of the paid period, and paused accounts
// past their resume date.
type DueQuery struct {
	Now time.Time
	// PastDueBefore is the NextBillingAt cutoff for past-due accounts,
	// normally Now minus the grace period. Zero means Now.
	PastDueBefore time.Time
	// After continues a listing strictly past the given position.
	After *DueCursor
	Limit int
}

// DueCursor is a position in the ListDue ordering.
type DueCursor struct {
	NextBillingAt time.Time
	ID            uuid.UUID
}

// CursorAt returns the position of acct in the ListDue ordering.
func CursorAt(acct *Account) *DueCursor {
	return &DueCursor{NextBillingAt: acct.NextBillingAt, ID: acct.ID}
}

// PastDueCutoff returns PastDueBefore, defaulting to Now.
func (q DueQuery) PastDueCutoff() time.Time {
	if q.PastDueBefore.IsZero() {
		return q.Now
	}
	return q.PastDueBefore
}

// Matches reports whether acct is selected by q, cursor included.
// Store implementations without a query language use it directly.
func (q DueQuery) Matches(acct *Account) bool {
	if q.After != nil && CompareDue(acct, q.After) <= 0 {
		return false
	}
	switch acct.Status {
	case StatusActive, StatusTrialing:
		return !acct.NextBillingAt.After(q.Now)
	case StatusPastDue:
		return !acct.NextBillingAt.After(q.PastDueCutoff())
	case StatusCanceled:
		return !acct.CurrentPeriodEnd.After(q.Now)
	case StatusPaused:
		return acct.ResumeAt != nil && !acct.ResumeAt.After(q.Now)
	default:
		return false
	}
}

// CompareDue orders acct against a cursor by NextBillingAt, then by the
// bytes of the ID.
func CompareDue(acct *Account, c *DueCursor) int {
	if n := acct.NextBillingAt.Compare(c.NextBillingAt); n != 0 {
		return n
	}
	return bytes.Compare(acct.ID[:], c.ID[:])
}
