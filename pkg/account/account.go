package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/tier"
)

// Account is one user's subscription to a tier.
// A user may own many accounts over time, but at most one in a status that
// holds the active slot.
type Account struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	TierID                 string
	BillingPeriod          tier.BillingPeriod
	Status                 Status
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	NextBillingAt          time.Time
	TrialEndsAt            *time.Time
	PausedAt               *time.Time
	ResumeAt               *time.Time
	Usage                  Usage
	Cancellation           *Cancellation
	ProviderSubscriptionID string
	ProviderCustomerID     string
	CreatedAt              time.Time
	UpdatedAt              time.Time

	// Version is bumped by the store on every successful Save.
	Version int64
}

// Usage is the per-account consumption snapshot.
type Usage struct {
	DesignsUsedThisMonth int64
	ActiveDesignRequests int64
	LastResetAt          time.Time
}

// Cancellation records when and why an account was canceled.
type Cancellation struct {
	At     time.Time
	Reason string
}

// IsActive reports whether the account may consume its quotas.
func (a *Account) IsActive() bool {
	return a.Status.HoldsActiveSlot()
}

// HasReachedMonthlyLimit reports whether the monthly design quota is used up.
func (a *Account) HasReachedMonthlyLimit(t tier.Tier) (bool, error) {
	if t.ID != a.TierID {
		return false, ErrTierMismatch
	}
	return a.Usage.DesignsUsedThisMonth >= t.MonthlyDesignQuota, nil
}

// CanAddConcurrentRequest reports whether one more design request may be in flight.
func (a *Account) CanAddConcurrentRequest(t tier.Tier) (bool, error) {
	if t.ID != a.TierID {
		return false, ErrTierMismatch
	}
	return a.Usage.ActiveDesignRequests < t.ConcurrentDesignQuota, nil
}

// Cancel moves the account to canceled. Canceling twice is a no-op that keeps
// the first cancellation record.
func (a *Account) Cancel(reason string, now time.Time) error {
	if a.Status == StatusCanceled {
		return nil
	}
	if err := a.fire(EventCancel, now); err != nil {
		return err
	}
	a.Cancellation = &Cancellation{At: now, Reason: reason}
	return nil
}

// Pause suspends an active account. A nil resumeAt pauses indefinitely.
func (a *Account) Pause(resumeAt *time.Time, now time.Time) error {
	if _, err := Next(a.Status, EventPause); err != nil {
		return err
	}
	if resumeAt != nil && !resumeAt.After(now) {
		return ErrInvalidResumeDate
	}
	if err := a.fire(EventPause, now); err != nil {
		return err
	}
	a.PausedAt = &now
	if resumeAt != nil {
		r := *resumeAt
		a.ResumeAt = &r
	} else {
		a.ResumeAt = nil
	}
	return nil
}

// Resume reactivates a paused account. The current period and next billing
// date are pushed back by the time spent paused.
func (a *Account) Resume(now time.Time) error {
	pausedAt := a.PausedAt
	if err := a.fire(EventResume, now); err != nil {
		return err
	}
	if pausedAt != nil && now.After(*pausedAt) {
		shift := now.Sub(*pausedAt)
		a.CurrentPeriodEnd = a.CurrentPeriodEnd.Add(shift)
		a.NextBillingAt = a.NextBillingAt.Add(shift)
	}
	a.PausedAt = nil
	a.ResumeAt = nil
	return nil
}

// Activate marks a trialing or past-due account as paid and active.
func (a *Account) Activate(now time.Time) error {
	return a.fire(EventActivate, now)
}

// MarkPastDue records a failed payment.
func (a *Account) MarkPastDue(now time.Time) error {
	return a.fire(EventPaymentFailed, now)
}

// Expire ends the account for good.
func (a *Account) Expire(now time.Time) error {
	return a.fire(EventExpire, now)
}

// Renew applies a successful payment: the billing period rolls forward by one
// period length and the account becomes active.
func (a *Account) Renew(now time.Time) error {
	if err := a.fire(EventRenew, now); err != nil {
		return err
	}
	a.CurrentPeriodStart = a.CurrentPeriodEnd
	a.CurrentPeriodEnd = a.BillingPeriod.Advance(a.CurrentPeriodEnd)
	a.NextBillingAt = a.CurrentPeriodEnd
	return nil
}

// ChangeTier switches the account to another tier and billing period. Usage
// counters are kept; the new quotas apply from the next check.
func (a *Account) ChangeTier(t tier.Tier, period tier.BillingPeriod, now time.Time) error {
	if !a.IsActive() {
		return ErrAccountInactive
	}
	if !period.Valid() {
		return tier.ErrInvalidBillingPeriod
	}
	a.TierID = t.ID
	a.BillingPeriod = period
	a.UpdatedAt = now
	return nil
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.TrialEndsAt = clonePtr(a.TrialEndsAt)
	c.PausedAt = clonePtr(a.PausedAt)
	c.ResumeAt = clonePtr(a.ResumeAt)
	if a.Cancellation != nil {
		cc := *a.Cancellation
		c.Cancellation = &cc
	}
	return &c
}

func (a *Account) fire(ev Event, now time.Time) error {
	next, err := Next(a.Status, ev)
	if err != nil {
		return err
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
