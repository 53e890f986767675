// Package storetest holds the behavioral suite every account.Store
// implementation must pass.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/tier"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) account.Store

// NewAccount builds a valid active account for userID, anchored at now.
func NewAccount(userID uuid.UUID, now time.Time) *account.Account {
	now = now.UTC().Truncate(time.Millisecond)
	end := tier.PeriodMonthly.Advance(now)
	return &account.Account{
		ID:                 uuid.New(),
		UserID:             userID,
		TierID:             "starter",
		BillingPeriod:      tier.PeriodMonthly,
		Status:             account.StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   end,
		NextBillingAt:      end,
		Usage:              account.Usage{LastResetAt: now},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))
		assert.Equal(t, int64(1), acct.Version)

		got, err := store.Get(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, acct.UserID, got.UserID)
		assert.Equal(t, account.StatusActive, got.Status)
		assert.True(t, acct.NextBillingAt.Equal(got.NextBillingAt))
		assert.Equal(t, int64(1), got.Version)

		active, err := store.GetActiveByUser(ctx, acct.UserID)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, active.ID)

		_, err = store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
		_, err = store.GetActiveByUser(ctx, uuid.New())
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
	})

	t.Run("one active account per user", func(t *testing.T) {
		store := newStore(t)
		userID := uuid.New()
		first := NewAccount(userID, now)
		require.NoError(t, store.Create(ctx, first))

		second := NewAccount(userID, now)
		second.Status = account.StatusTrialing
		assert.ErrorIs(t, store.Create(ctx, second), account.ErrActiveAccountExists)

		require.NoError(t, first.Cancel("moving on", now))
		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Create(ctx, second))

		first.Status = account.StatusActive
		assert.ErrorIs(t, store.Save(ctx, first), account.ErrActiveAccountExists)
	})

	t.Run("save is optimistic and keeps usage", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))

		_, err := store.IncrementDesignsUsed(ctx, acct.ID, 10)
		require.NoError(t, err)

		stale := acct.Clone()
		acct.Usage.DesignsUsedThisMonth = 0
		require.NoError(t, acct.Pause(nil, now))
		require.NoError(t, store.Save(ctx, acct))
		assert.Equal(t, int64(2), acct.Version)

		got, err := store.Get(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, account.StatusPaused, got.Status)
		assert.Equal(t, int64(1), got.Usage.DesignsUsedThisMonth, "save must not overwrite usage")

		require.NoError(t, stale.Cancel("late", now))
		assert.ErrorIs(t, store.Save(ctx, stale), account.ErrConcurrentUpdate)
	})

	t.Run("increment stops at limit", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))

		for i := int64(1); i <= 3; i++ {
			n, err := store.IncrementDesignsUsed(ctx, acct.ID, 3)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		_, err := store.IncrementDesignsUsed(ctx, acct.ID, 3)
		assert.ErrorIs(t, err, account.ErrUsageLimitReached)

		_, err = store.IncrementDesignsUsed(ctx, uuid.New(), 3)
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
	})

	t.Run("increment requires active account", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))
		require.NoError(t, acct.Cancel("", now))
		require.NoError(t, store.Save(ctx, acct))

		_, err := store.IncrementDesignsUsed(ctx, acct.ID, 3)
		assert.ErrorIs(t, err, account.ErrAccountInactive)
	})

	t.Run("concurrent increments with one slot left", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))
		for range 9 {
			_, err := store.IncrementDesignsUsed(ctx, acct.ID, 10)
			require.NoError(t, err)
		}

		var wins, rejections atomic.Int64
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.IncrementDesignsUsed(ctx, acct.ID, 10)
				switch {
				case err == nil:
					wins.Add(1)
				case assert.ErrorIs(t, err, account.ErrUsageLimitReached):
					rejections.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), wins.Load())
		assert.Equal(t, int64(7), rejections.Load())
		got, err := store.Get(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), got.Usage.DesignsUsedThisMonth)
	})

	t.Run("monthly reset happens once per month", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))
		_, err := store.IncrementDesignsUsed(ctx, acct.ID, 10)
		require.NoError(t, err)

		reset, err := store.ResetUsageIfDue(ctx, acct.ID, now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, reset, "same month")

		june := time.Date(2024, 6, 1, 0, 0, 1, 0, time.UTC)
		reset, err = store.ResetUsageIfDue(ctx, acct.ID, june)
		require.NoError(t, err)
		assert.True(t, reset)

		reset, err = store.ResetUsageIfDue(ctx, acct.ID, june.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, reset, "already reset this month")

		got, err := store.Get(ctx, acct.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Usage.DesignsUsedThisMonth)
		assert.True(t, got.Usage.LastResetAt.Equal(june))
	})

	t.Run("compare and set active requests", func(t *testing.T) {
		store := newStore(t)
		acct := NewAccount(uuid.New(), now)
		require.NoError(t, store.Create(ctx, acct))

		require.NoError(t, store.CompareAndSetActiveRequests(ctx, acct.ID, 0, 2))
		assert.ErrorIs(t, store.CompareAndSetActiveRequests(ctx, acct.ID, 0, 1), account.ErrConcurrentUpdate)
		require.NoError(t, store.CompareAndSetActiveRequests(ctx, acct.ID, 2, 1))

		got, err := store.Get(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Usage.ActiveDesignRequests)
	})

	t.Run("list due", func(t *testing.T) {
		store := newStore(t)
		grace := 7 * 24 * time.Hour

		due := NewAccount(uuid.New(), now.AddDate(0, -1, -1))
		notDue := NewAccount(uuid.New(), now)
		expired := NewAccount(uuid.New(), now.AddDate(0, -2, 0))
		expired.Status = account.StatusExpired
		resumeAt := now.Add(-time.Hour)
		paused := NewAccount(uuid.New(), now.AddDate(0, -3, 0))
		paused.Status = account.StatusPaused
		paused.ResumeAt = &resumeAt
		pausedForever := NewAccount(uuid.New(), now.AddDate(0, -3, 0))
		pausedForever.Status = account.StatusPaused
		inGrace := NewAccount(uuid.New(), now.AddDate(0, -1, -2))
		inGrace.Status = account.StatusPastDue
		lapsed := NewAccount(uuid.New(), now.AddDate(0, -1, -10))
		lapsed.Status = account.StatusPastDue
		canceledPaid := NewAccount(uuid.New(), now.AddDate(0, 0, -5))
		canceledPaid.Status = account.StatusCanceled
		canceledPaid.NextBillingAt = now.AddDate(0, 0, -1)
		canceledEnded := NewAccount(uuid.New(), now.AddDate(0, -1, -3))
		canceledEnded.Status = account.StatusCanceled

		for _, a := range []*account.Account{due, notDue, expired, paused, pausedForever, inGrace, lapsed, canceledPaid, canceledEnded} {
			require.NoError(t, store.Create(ctx, a))
		}

		q := account.DueQuery{Now: now, PastDueBefore: now.Add(-grace)}
		got, err := store.ListDue(ctx, q)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{due.ID, paused.ID, lapsed.ID, canceledEnded.ID}, idsOf(got))
		for i := 1; i < len(got); i++ {
			assert.Negative(t, account.CompareDue(got[i-1], account.CursorAt(got[i])), "ordered by billing date then ID")
		}

		noGrace, err := store.ListDue(ctx, account.DueQuery{Now: now})
		require.NoError(t, err)
		assert.Contains(t, idsOf(noGrace), inGrace.ID, "zero cutoff means now")

		q.Limit = 1
		limited, err := store.ListDue(ctx, q)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, got[0].ID, limited[0].ID)
	})

	t.Run("list due pages past the cursor", func(t *testing.T) {
		store := newStore(t)

		billedAt := now.AddDate(0, -1, -1)
		accounts := make([]*account.Account, 5)
		for i := range accounts {
			accounts[i] = NewAccount(uuid.New(), billedAt)
			require.NoError(t, store.Create(ctx, accounts[i]))
		}

		q := account.DueQuery{Now: now, Limit: 2}
		var seen []uuid.UUID
		for range 5 {
			page, err := store.ListDue(ctx, q)
			require.NoError(t, err)
			seen = append(seen, idsOf(page)...)
			if len(page) < q.Limit {
				break
			}
			q.After = account.CursorAt(page[len(page)-1])
		}
		assert.ElementsMatch(t, idsOf(accounts), seen)
		assert.Len(t, seen, len(accounts), "no account is listed twice")
	})
}

func idsOf(accounts []*account.Account) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids
}
