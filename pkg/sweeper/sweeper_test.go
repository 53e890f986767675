package sweeper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/billingcycle"
	"github.com/canvascue/accounting/pkg/retry"
	"github.com/canvascue/accounting/pkg/store/memstore"
	"github.com/canvascue/accounting/pkg/store/storetest"
	"github.com/canvascue/accounting/pkg/sweeper"
	"github.com/canvascue/accounting/pkg/tier"
	"github.com/canvascue/accounting/pkg/usage"
)

var start = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   account.Store
	mem     *memstore.Store
	sweeper *sweeper.Sweeper
	metrics *sweeper.Metrics
	now     time.Time
}

func newFixture(t *testing.T, wrap func(*memstore.Store) account.Store, opts ...sweeper.Option) *fixture {
	t.Helper()

	f := &fixture{mem: memstore.New(), now: start}
	f.store = f.mem
	if wrap != nil {
		f.store = wrap(f.mem)
	}
	f.metrics = sweeper.NewMetrics(prometheus.NewRegistry())

	clock := func() time.Time { return f.now }
	catalog := tier.MustInMemCatalog(tier.Tier{
		ID: "starter", Name: "Starter", Level: 1, Currency: "USD", Active: true,
		MonthlyPrice: decimal.RequireFromString("399"), QuarterlyPrice: decimal.RequireFromString("1077"),
		MonthlyDesignQuota: 10, ConcurrentDesignQuota: 1,
	})
	accounts := account.NewService(f.store, catalog,
		account.WithClock(clock),
		account.WithRetryPolicy(retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond}),
	)
	accountant := usage.NewAccountant(f.store, catalog, usage.WithClock(clock))
	projector := billingcycle.NewProjector(billingcycle.WithClock(clock))

	base := []sweeper.Option{sweeper.WithClock(clock), sweeper.WithMetrics(f.metrics)}
	f.sweeper = sweeper.New(f.store, accounts, accountant, projector, append(base, opts...)...)
	return f
}

func (f *fixture) create(t *testing.T, edit func(*account.Account)) *account.Account {
	t.Helper()
	acct := storetest.NewAccount(uuid.New(), start)
	if edit != nil {
		edit(acct)
	}
	require.NoError(t, f.mem.Create(context.Background(), acct))
	return acct
}

func (f *fixture) status(t *testing.T, id uuid.UUID) account.Status {
	t.Helper()
	acct, err := f.mem.Get(context.Background(), id)
	require.NoError(t, err)
	return acct.Status
}

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("overdue account goes past due then expires after grace", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		acct := f.create(t, nil)

		f.now = acct.NextBillingAt.Add(time.Hour)
		res, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Actions[sweeper.ActionPastDue])
		assert.Equal(t, 1, res.Actions[sweeper.ActionReset], "June started since the last reset")
		assert.Equal(t, account.StatusPastDue, f.status(t, acct.ID))

		f.now = f.now.Add(3 * 24 * time.Hour)
		res, err = f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, res.Actions, "still within grace")
		assert.Equal(t, account.StatusPastDue, f.status(t, acct.ID))

		f.now = acct.NextBillingAt.Add(8 * 24 * time.Hour)
		res, err = f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Actions[sweeper.ActionExpire])
		assert.Equal(t, account.StatusExpired, f.status(t, acct.ID))

		res, err = f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Scanned, "expired accounts are never due")

		assert.Equal(t, float64(4), testutil.ToFloat64(f.metrics.Runs))
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Transitions.WithLabelValues(string(sweeper.ActionPastDue))))
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Transitions.WithLabelValues(string(sweeper.ActionExpire))))
	})

	t.Run("paused account resumes on its resume date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		resumeAt := start.Add(48 * time.Hour)
		acct := f.create(t, func(a *account.Account) {
			pausedAt := start
			a.Status = account.StatusPaused
			a.PausedAt = &pausedAt
			a.ResumeAt = &resumeAt
		})

		f.now = start.Add(24 * time.Hour)
		res, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Scanned)

		f.now = resumeAt.Add(time.Minute)
		res, err = f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Actions[sweeper.ActionResume])
		assert.Equal(t, account.StatusActive, f.status(t, acct.ID))
	})

	t.Run("canceled account expires at the end of the paid period", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		acct := f.create(t, func(a *account.Account) {
			require.NoError(t, a.Cancel("too expensive", start.Add(time.Hour)))
		})

		f.now = acct.CurrentPeriodEnd.Add(-time.Minute)
		_, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, account.StatusCanceled, f.status(t, acct.ID))

		f.now = acct.CurrentPeriodEnd
		res, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Actions[sweeper.ActionExpire])
		assert.Equal(t, account.StatusExpired, f.status(t, acct.ID))
	})

	t.Run("sweep pages through every due account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil, sweeper.WithBatchSize(2))
		for range 5 {
			f.create(t, nil)
		}

		f.now = start.AddDate(0, 1, 1)
		res, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, res.Scanned)
		assert.False(t, res.Truncated)
		assert.Equal(t, 5, res.Actions[sweeper.ActionPastDue])
	})

	t.Run("page limit truncates a sweep and the next run continues", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil, sweeper.WithBatchSize(2), sweeper.WithMaxPages(1))
		for range 3 {
			f.create(t, nil)
		}

		f.now = start.AddDate(0, 1, 1)
		res, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
		assert.True(t, res.Truncated)
		assert.Equal(t, 2, res.Actions[sweeper.ActionPastDue])

		res, err = f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned, "accounts in grace are not listed again")
		assert.False(t, res.Truncated)
		assert.Equal(t, 1, res.Actions[sweeper.ActionPastDue])
	})

	t.Run("past due accounts in grace do not hold back overdue ones", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil, sweeper.WithBatchSize(2), sweeper.WithMaxPages(1))
		f.now = start.AddDate(0, 1, 0).Add(time.Hour)

		for range 2 {
			f.create(t, func(a *account.Account) {
				a.Status = account.StatusPastDue
				a.NextBillingAt = f.now.Add(-48 * time.Hour)
			})
		}
		overdue := f.create(t, nil)

		res, err := f.sweeper.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 1, res.Actions[sweeper.ActionPastDue])
		assert.Equal(t, account.StatusPastDue, f.status(t, overdue.ID))
	})

	t.Run("failing accounts do not hold back the rest", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("reset failed")
		f := newFixture(t, func(m *memstore.Store) account.Store {
			return &failingStore{Store: m, resetErr: boom}
		}, sweeper.WithBatchSize(1))
		for range 3 {
			f.create(t, nil)
		}

		f.now = start.AddDate(0, 1, 1)
		res, err := f.sweeper.Run(ctx)
		assert.ErrorIs(t, err, sweeper.ErrSweepIncomplete)
		assert.Equal(t, 3, res.Scanned)
		assert.Equal(t, 3, res.Failed)
	})

	t.Run("listing failure aborts the sweep", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, func(m *memstore.Store) account.Store {
			return &failingStore{Store: m, listErr: errors.New("db down")}
		})

		_, err := f.sweeper.Run(ctx)
		assert.ErrorIs(t, err, sweeper.ErrFailedToListDue)
	})

	t.Run("account failures are reported after the sweep", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("reset failed")
		f := newFixture(t, func(m *memstore.Store) account.Store {
			return &failingStore{Store: m, resetErr: boom}
		})
		first := f.create(t, nil)
		second := f.create(t, nil)

		f.now = start.AddDate(0, 1, 1)
		res, err := f.sweeper.Run(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, sweeper.ErrSweepIncomplete)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 2, res.Failed)
		assert.Equal(t, 2, res.Actions[sweeper.ActionPastDue])
		assert.Equal(t, account.StatusPastDue, f.status(t, first.ID))
		assert.Equal(t, account.StatusPastDue, f.status(t, second.ID))
		assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Failures))
	})
}

func TestSweeper_Decide(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.now = start.AddDate(0, 1, 1)

	overdue := storetest.NewAccount(uuid.New(), start)
	assert.Equal(t, sweeper.ActionPastDue, f.sweeper.Decide(overdue))

	fresh := storetest.NewAccount(uuid.New(), f.now)
	assert.Equal(t, sweeper.ActionNone, f.sweeper.Decide(fresh))

	pausedForever := storetest.NewAccount(uuid.New(), start)
	pausedForever.Status = account.StatusPaused
	assert.Equal(t, sweeper.ActionNone, f.sweeper.Decide(pausedForever))
}

func TestSweeper_Scheduler(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	_, err := f.sweeper.Scheduler(sweeper.Config{Schedule: "every now and then"})
	assert.ErrorIs(t, err, sweeper.ErrInvalidSchedule)

	c, err := f.sweeper.Scheduler(sweeper.Config{Schedule: "@every 1h", BatchSize: 50, Timeout: time.Second})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}

type failingStore struct {
	*memstore.Store
	listErr  error
	resetErr error
}

func (s *failingStore) ListDue(ctx context.Context, q account.DueQuery) ([]*account.Account, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListDue(ctx, q)
}

func (s *failingStore) ResetUsageIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	if s.resetErr != nil {
		return false, s.resetErr
	}
	return s.Store.ResetUsageIfDue(ctx, id, now)
}
