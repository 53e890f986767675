package tier_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/tier"
)

func testTiers() []tier.Tier {
	return []tier.Tier{
		{
			ID:                    "starter",
			Name:                  "Starter",
			Level:                 1,
			MonthlyPrice:          decimal.RequireFromString("399"),
			QuarterlyPrice:        decimal.RequireFromString("1077"),
			Currency:              "USD",
			MonthlyDesignQuota:    10,
			ConcurrentDesignQuota: 1,
			Features:              []tier.Feature{tier.FeatureSourceFiles},
			Active:                true,
		},
		{
			ID:                    "growth",
			Name:                  "Growth",
			Level:                 2,
			MonthlyPrice:          decimal.RequireFromString("799"),
			QuarterlyPrice:        decimal.RequireFromString("2157"),
			Currency:              "USD",
			MonthlyDesignQuota:    30,
			ConcurrentDesignQuota: 2,
			Features:              []tier.Feature{tier.FeatureSourceFiles, tier.FeaturePrioritySupport},
			Active:                true,
		},
		{
			ID:                    "legacy",
			Name:                  "Legacy Pro",
			Level:                 3,
			MonthlyPrice:          decimal.RequireFromString("999"),
			QuarterlyPrice:        decimal.RequireFromString("2697"),
			Currency:              "USD",
			MonthlyDesignQuota:    50,
			ConcurrentDesignQuota: 3,
			Active:                false,
		},
	}
}

func TestBillingPeriod_Advance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		period tier.BillingPeriod
		from   time.Time
		want   time.Time
	}{
		{
			name:   "monthly mid-month keeps day",
			period: tier.PeriodMonthly,
			from:   time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			want:   time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly from Jan 31 overflows into March in a leap year",
			period: tier.PeriodMonthly,
			from:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "monthly from Jan 31 overflows into March outside leap years",
			period: tier.PeriodMonthly,
			from:   time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "quarterly crosses year boundary",
			period: tier.PeriodQuarterly,
			from:   time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.period.Advance(tt.from))
		})
	}
}

func TestParseBillingPeriod(t *testing.T) {
	t.Parallel()

	p, err := tier.ParseBillingPeriod("quarterly")
	require.NoError(t, err)
	assert.Equal(t, tier.PeriodQuarterly, p)
	assert.Equal(t, 3, p.Months())
	assert.Equal(t, int64(90), p.ProrationDays())

	_, err = tier.ParseBillingPeriod("yearly")
	assert.ErrorIs(t, err, tier.ErrInvalidBillingPeriod)
}

func TestTier_PriceAndDailyRate(t *testing.T) {
	t.Parallel()

	starter := testTiers()[0]

	assert.True(t, starter.Price(tier.PeriodMonthly).Equal(decimal.RequireFromString("399")))
	assert.True(t, starter.Price(tier.PeriodQuarterly).Equal(decimal.RequireFromString("1077")))
	assert.True(t, starter.DailyRate(tier.PeriodMonthly).Equal(decimal.RequireFromString("13.3")))
	assert.True(t, starter.DailyRate(tier.PeriodQuarterly).Equal(decimal.RequireFromString("11.9666666666666667")))
	assert.True(t, starter.HasFeature(tier.FeatureSourceFiles))
	assert.False(t, starter.HasFeature(tier.FeatureRushDelivery))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts well formed catalog", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tier.Validate(testTiers()))
	})

	t.Run("rejects empty catalog", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, tier.Validate(nil), tier.ErrNoTiers)
	})

	t.Run("rejects duplicate levels", func(t *testing.T) {
		t.Parallel()
		tiers := testTiers()
		tiers[1].Level = 1
		assert.ErrorIs(t, tier.Validate(tiers), tier.ErrDuplicateTierLevel)
	})

	t.Run("rejects duplicate IDs", func(t *testing.T) {
		t.Parallel()
		tiers := testTiers()
		tiers[1].ID = "starter"
		assert.ErrorIs(t, tier.Validate(tiers), tier.ErrDuplicateTierID)
	})

	t.Run("rejects zero level", func(t *testing.T) {
		t.Parallel()
		tiers := testTiers()
		tiers[0].Level = 0
		assert.ErrorIs(t, tier.Validate(tiers), tier.ErrInvalidTier)
	})

	t.Run("rejects higher level that is cheaper", func(t *testing.T) {
		t.Parallel()
		tiers := testTiers()
		tiers[1].MonthlyPrice = decimal.RequireFromString("99")
		assert.ErrorIs(t, tier.Validate(tiers), tier.ErrInvalidTier)
	})

	t.Run("rejects higher level with smaller quota", func(t *testing.T) {
		t.Parallel()
		tiers := testTiers()
		tiers[1].ConcurrentDesignQuota = 0
		assert.ErrorIs(t, tier.Validate(tiers), tier.ErrInvalidTier)
	})
}

func TestInMemCatalog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	catalog, err := tier.NewInMemCatalog(testTiers()...)
	require.NoError(t, err)

	t.Run("returns tier by ID", func(t *testing.T) {
		t.Parallel()
		got, err := catalog.GetTierByID(ctx, "growth")
		require.NoError(t, err)
		assert.Equal(t, "Growth", got.Name)
		assert.Equal(t, int64(30), got.MonthlyDesignQuota)
	})

	t.Run("missing tier is not found", func(t *testing.T) {
		t.Parallel()
		_, err := catalog.GetTierByID(ctx, "enterprise")
		assert.ErrorIs(t, err, tier.ErrTierNotFound)
	})

	t.Run("active tiers are ordered by level and skip inactive", func(t *testing.T) {
		t.Parallel()
		got, err := catalog.GetActiveTiers(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "starter", got[0].ID)
		assert.Equal(t, "growth", got[1].ID)
	})

	t.Run("returned tiers are copies", func(t *testing.T) {
		t.Parallel()
		got, err := catalog.GetTierByID(ctx, "growth")
		require.NoError(t, err)
		got.Features[0] = tier.FeatureRushDelivery

		again, err := catalog.GetTierByID(ctx, "growth")
		require.NoError(t, err)
		assert.Equal(t, tier.FeatureSourceFiles, again.Features[0])
	})

	t.Run("invalid input fails", func(t *testing.T) {
		t.Parallel()
		_, err := tier.NewInMemCatalog()
		assert.ErrorIs(t, err, tier.ErrFailedToLoadTiers)
		assert.ErrorIs(t, err, tier.ErrNoTiers)
		assert.Panics(t, func() { tier.MustInMemCatalog() })
	})
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tiers := testTiers()
	starter, growth := tiers[0], tiers[1]

	up := tier.Compare(starter, growth)
	assert.Equal(t, tier.DirectionUpgrade, up.Direction)
	assert.Equal(t, []tier.Feature{tier.FeaturePrioritySupport}, up.GainedFeatures)
	assert.Empty(t, up.LostFeatures)
	assert.Equal(t, int64(20), up.MonthlyQuotaDelta)
	assert.False(t, up.ReducesQuotas())

	down := tier.Compare(growth, starter)
	assert.Equal(t, tier.DirectionDowngrade, down.Direction)
	assert.Equal(t, []tier.Feature{tier.FeaturePrioritySupport}, down.LostFeatures)
	assert.True(t, down.ReducesQuotas())

	same := tier.Compare(starter, starter)
	assert.Equal(t, tier.DirectionSame, same.Direction)
	assert.Empty(t, same.GainedFeatures)
	assert.Empty(t, same.LostFeatures)
}
