package tier

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Feature is a boolean capability switched on per tier.
type Feature string

const (
	FeaturePrioritySupport    Feature = "priority_support"
	FeatureSourceFiles        Feature = "source_files"
	FeatureDedicatedDesigner  Feature = "dedicated_designer"
	FeatureRushDelivery       Feature = "rush_delivery"
	FeatureBrandKit           Feature = "brand_kit"
	FeatureUnlimitedRevisions Feature = "unlimited_revisions"
)

// BillingPeriod is the charge cadence of a subscription.
type BillingPeriod string

const (
	PeriodMonthly   BillingPeriod = "monthly"
	PeriodQuarterly BillingPeriod = "quarterly"
)

// ParseBillingPeriod validates a raw billing period value.
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	switch p := BillingPeriod(s); p {
	case PeriodMonthly, PeriodQuarterly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBillingPeriod, s)
	}
}

// Valid reports whether p is a known billing period.
func (p BillingPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodQuarterly
}

// Months returns the number of calendar months covered by one period.
func (p BillingPeriod) Months() int {
	if p == PeriodQuarterly {
		return 3
	}
	return 1
}

// ProrationDays is the fixed day-count denominator used for daily rates.
// It intentionally ignores the real calendar length of the period.
func (p BillingPeriod) ProrationDays() int64 {
	if p == PeriodQuarterly {
		return 90
	}
	return 30
}

// Advance moves t forward by one period using calendar arithmetic.
// Overflowing days normalise the way time.AddDate does, so Jan 31 + 1 month
// lands on Mar 2 (or Mar 3 outside leap years).
func (p BillingPeriod) Advance(t time.Time) time.Time {
	return t.AddDate(0, p.Months(), 0)
}

// Tier is an immutable catalog entry. Accounting code only reads tiers;
// they are created and updated by administrative seeding.
type Tier struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Level                 int             `json:"level"`
	MonthlyPrice          decimal.Decimal `json:"monthly_price"`
	QuarterlyPrice        decimal.Decimal `json:"quarterly_price"`
	Currency              string          `json:"currency"`
	MonthlyDesignQuota    int64           `json:"monthly_design_quota"`
	ConcurrentDesignQuota int64           `json:"concurrent_design_quota"`
	Features              []Feature       `json:"features,omitempty"`
	Active                bool            `json:"active"`
}

// Price returns the list price for the given billing period.
func (t Tier) Price(p BillingPeriod) decimal.Decimal {
	if p == PeriodQuarterly {
		return t.QuarterlyPrice
	}
	return t.MonthlyPrice
}

// DailyRate is the per-day price of the tier for the given period.
func (t Tier) DailyRate(p BillingPeriod) decimal.Decimal {
	return t.Price(p).Div(decimal.NewFromInt(p.ProrationDays()))
}

// HasFeature reports whether the tier enables feature f.
func (t Tier) HasFeature(f Feature) bool {
	return slices.Contains(t.Features, f)
}

// Clone returns a deep copy so catalog consumers cannot mutate shared state.
func (t Tier) Clone() Tier {
	t.Features = slices.Clone(t.Features)
	return t
}

func (t Tier) validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: empty ID", ErrInvalidTier)
	case t.Level < 1:
		return fmt.Errorf("%w: tier %s has level %d, must be >= 1", ErrInvalidTier, t.ID, t.Level)
	case t.MonthlyPrice.IsNegative() || t.QuarterlyPrice.IsNegative():
		return fmt.Errorf("%w: tier %s has a negative price", ErrInvalidTier, t.ID)
	case t.MonthlyDesignQuota < 0 || t.ConcurrentDesignQuota < 0:
		return fmt.Errorf("%w: tier %s has a negative quota", ErrInvalidTier, t.ID)
	}
	return nil
}
