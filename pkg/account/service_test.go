package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/retry"
	"github.com/canvascue/accounting/pkg/store/memstore"
	"github.com/canvascue/accounting/pkg/tier"
)

func newService(t *testing.T, store account.Store, opts ...account.ServiceOption) *account.Service {
	t.Helper()
	legacy := growthTier()
	legacy.ID, legacy.Level, legacy.Active = "legacy", 3, false
	catalog := tier.MustInMemCatalog(starterTier(), growthTier(), legacy)

	base := []account.ServiceOption{
		account.WithClock(func() time.Time { return now }),
		account.WithRetryPolicy(retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond}),
	}
	return account.NewService(store, catalog, append(base, opts...)...)
}

// conflictingStore fails the first n saves with a version conflict.
type conflictingStore struct {
	*memstore.Store
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, acct *account.Account) error {
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		return account.ErrConcurrentUpdate
	}
	return s.Store.Save(ctx, acct)
}

func TestService_Open(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("opens an active account", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, memstore.New())
		userID := uuid.New()

		acct, err := svc.Open(ctx, account.OpenParams{UserID: userID, TierID: "starter", BillingPeriod: tier.PeriodMonthly})
		require.NoError(t, err)
		assert.Equal(t, account.StatusActive, acct.Status)
		assert.Equal(t, now, acct.CurrentPeriodStart)
		assert.Equal(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), acct.NextBillingAt)
		assert.Equal(t, now, acct.Usage.LastResetAt)
		assert.Equal(t, int64(1), acct.Version)

		got, err := svc.GetActiveForUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("trial bills at trial end", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, memstore.New())

		acct, err := svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "growth", BillingPeriod: tier.PeriodQuarterly, TrialDays: 14})
		require.NoError(t, err)
		assert.Equal(t, account.StatusTrialing, acct.Status)
		require.NotNil(t, acct.TrialEndsAt)
		assert.Equal(t, now.AddDate(0, 0, 14), *acct.TrialEndsAt)
		assert.Equal(t, *acct.TrialEndsAt, acct.NextBillingAt)
	})

	t.Run("second active account is rejected", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, memstore.New())
		p := account.OpenParams{UserID: uuid.New(), TierID: "starter", BillingPeriod: tier.PeriodMonthly}

		_, err := svc.Open(ctx, p)
		require.NoError(t, err)
		_, err = svc.Open(ctx, p)
		assert.ErrorIs(t, err, account.ErrActiveAccountExists)
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, memstore.New())

		_, err := svc.Open(ctx, account.OpenParams{TierID: "starter", BillingPeriod: tier.PeriodMonthly})
		assert.ErrorIs(t, err, account.ErrInvalidAccount)

		_, err = svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "starter", BillingPeriod: "yearly"})
		assert.ErrorIs(t, err, tier.ErrInvalidBillingPeriod)

		_, err = svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "enterprise", BillingPeriod: tier.PeriodMonthly})
		assert.ErrorIs(t, err, tier.ErrTierNotFound)

		_, err = svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "legacy", BillingPeriod: tier.PeriodMonthly})
		assert.ErrorIs(t, err, tier.ErrTierNotFound, "inactive tiers are not offered")
	})
}

func TestService_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newService(t, memstore.New())

	acct, err := svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "starter", BillingPeriod: tier.PeriodMonthly})
	require.NoError(t, err)

	resumeAt := now.AddDate(0, 1, 0)
	acct, err = svc.Pause(ctx, acct.ID, &resumeAt)
	require.NoError(t, err)
	assert.Equal(t, account.StatusPaused, acct.Status)

	acct, err = svc.Resume(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, acct.Status)

	acct, err = svc.MarkPastDue(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusPastDue, acct.Status)

	acct, err = svc.Renew(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusActive, acct.Status)
	assert.Equal(t, time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC), acct.NextBillingAt)

	acct, err = svc.ChangeTier(ctx, acct.ID, "growth", tier.PeriodQuarterly)
	require.NoError(t, err)
	assert.Equal(t, "growth", acct.TierID)

	acct, err = svc.LinkProvider(ctx, acct.ID, "sub_01", "ctm_01")
	require.NoError(t, err)
	assert.Equal(t, "sub_01", acct.ProviderSubscriptionID)

	acct, err = svc.Cancel(ctx, acct.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, account.StatusCanceled, acct.Status)
	version := acct.Version

	again, err := svc.Cancel(ctx, acct.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, "done", again.Cancellation.Reason)
	assert.Equal(t, version, again.Version, "repeated cancel does not write")

	_, err = svc.Resume(ctx, acct.ID)
	assert.ErrorIs(t, err, account.ErrInvalidTransition)

	acct, err = svc.Expire(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatusExpired, acct.Status)

	_, err = svc.Activate(ctx, acct.ID)
	assert.ErrorIs(t, err, account.ErrInvalidTransition)

	_, err = svc.Cancel(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestService_RetriesVersionConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("succeeds after transient conflicts", func(t *testing.T) {
		t.Parallel()
		store := &conflictingStore{Store: memstore.New()}
		svc := newService(t, store)
		acct, err := svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "starter", BillingPeriod: tier.PeriodMonthly})
		require.NoError(t, err)

		store.conflicts = 2
		got, err := svc.Pause(ctx, acct.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, account.StatusPaused, got.Status)
		assert.Equal(t, 3, store.saves)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		t.Parallel()
		store := &conflictingStore{Store: memstore.New()}
		svc := newService(t, store)
		acct, err := svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "starter", BillingPeriod: tier.PeriodMonthly})
		require.NoError(t, err)

		store.conflicts = 100
		_, err = svc.Pause(ctx, acct.ID, nil)
		assert.ErrorIs(t, err, account.ErrConcurrentUpdate)
		assert.True(t, retry.IsTransient(err))
		assert.Equal(t, 4, store.saves)
	})

	t.Run("does not retry invalid transitions", func(t *testing.T) {
		t.Parallel()
		store := &conflictingStore{Store: memstore.New()}
		svc := newService(t, store)
		acct, err := svc.Open(ctx, account.OpenParams{UserID: uuid.New(), TierID: "starter", BillingPeriod: tier.PeriodMonthly})
		require.NoError(t, err)

		_, err = svc.Resume(ctx, acct.ID)
		assert.True(t, errors.Is(err, account.ErrInvalidTransition))
		assert.Zero(t, store.saves)
	})
}

func TestNewService_PanicsWithoutDependencies(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { account.NewService(nil, tier.MustInMemCatalog(starterTier())) })
	assert.Panics(t, func() { account.NewService(memstore.New(), nil) })
}
