package billingcycle

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/tier"
)

const day = 24 * time.Hour

// Option configures a Projector.
type Option func(*Projector)

// WithClock overrides the time source. Nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(p *Projector) {
		if now != nil {
			p.now = now
		}
	}
}

// WithGracePeriod sets how long a past-due account is kept before it expires.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Projector) {
		if d >= 0 {
			p.grace = d
		}
	}
}

// Projector derives billing dates and amounts from an account without
// changing it.
type Projector struct {
	now   func() time.Time
	grace time.Duration
}

// NewProjector creates a Projector with a 7 day grace period.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		now:   func() time.Time { return time.Now().UTC() },
		grace: 7 * day,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GracePeriod returns how long a past-due account is kept before it expires.
func (p *Projector) GracePeriod() time.Duration { return p.grace }

// NextBillingDate advances the current period end by one billing period using
// calendar arithmetic. Month-end overflow follows time.AddDate, so a monthly
// period ending 2024-01-31 bills next on 2024-03-02.
func (p *Projector) NextBillingDate(acct *account.Account) time.Time {
	return acct.BillingPeriod.Advance(acct.CurrentPeriodEnd)
}

// DaysUntilNextBilling returns whole days until NextBillingDate, rounding
// partial days up. Negative when the date has passed.
func (p *Projector) DaysUntilNextBilling(acct *account.Account) int {
	return ceilDays(p.NextBillingDate(acct).Sub(p.now()))
}

// Proration is the adjustment owed when switching tier or period mid-cycle.
// A positive Proration is owed by the customer; a negative one is credit due.
type Proration struct {
	Credit        decimal.Decimal
	Charge        decimal.Decimal
	Proration     decimal.Decimal
	DaysRemaining int64
	Currency      string
}

// CalculateProration prices the rest of the current period on both the
// current and the next plan. Daily rates use a fixed 30 (monthly) or 90
// (quarterly) day denominator regardless of the real period length.
func (p *Projector) CalculateProration(acct *account.Account, current, next tier.Tier, nextPeriod tier.BillingPeriod) (Proration, error) {
	if current.ID != acct.TierID {
		return Proration{}, account.ErrTierMismatch
	}
	if !nextPeriod.Valid() {
		return Proration{}, tier.ErrInvalidBillingPeriod
	}
	if current.Currency != next.Currency {
		return Proration{}, ErrCurrencyMismatch
	}

	days := int64(max(0, ceilDays(acct.CurrentPeriodEnd.Sub(p.now()))))
	remaining := decimal.NewFromInt(days)

	// Round each side first so the net always equals Charge minus Credit.
	credit := current.DailyRate(acct.BillingPeriod).Mul(remaining).Round(2)
	charge := next.DailyRate(nextPeriod).Mul(remaining).Round(2)

	return Proration{
		Credit:        credit,
		Charge:        charge,
		Proration:     charge.Sub(credit),
		DaysRemaining: days,
		Currency:      current.Currency,
	}, nil
}

// IsOverdue reports whether a billable account has passed its billing date.
func (p *Projector) IsOverdue(acct *account.Account) bool {
	switch acct.Status {
	case account.StatusActive, account.StatusTrialing, account.StatusPastDue:
		return !p.now().Before(acct.NextBillingAt)
	default:
		return false
	}
}

// ShouldExpire reports whether the account has run out of time: past-due
// beyond the grace period, or canceled past the end of the paid period.
func (p *Projector) ShouldExpire(acct *account.Account) bool {
	now := p.now()
	switch acct.Status {
	case account.StatusPastDue:
		return !now.Before(acct.NextBillingAt.Add(p.grace))
	case account.StatusCanceled:
		return !now.Before(acct.CurrentPeriodEnd)
	default:
		return false
	}
}

// ShouldResume reports whether a paused account reached its resume date.
func (p *Projector) ShouldResume(acct *account.Account) bool {
	return acct.Status == account.StatusPaused &&
		acct.ResumeAt != nil &&
		!p.now().Before(*acct.ResumeAt)
}

// TrialDaysRemaining returns whole days left in the trial, rounding partial
// days up. Zero when not trialing or the trial has ended.
func (p *Projector) TrialDaysRemaining(acct *account.Account) int {
	if acct.Status != account.StatusTrialing || acct.TrialEndsAt == nil {
		return 0
	}
	return max(0, ceilDays(acct.TrialEndsAt.Sub(p.now())))
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}
