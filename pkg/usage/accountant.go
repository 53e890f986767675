package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/logger"
	"github.com/canvascue/accounting/pkg/retry"
	"github.com/canvascue/accounting/pkg/tier"
)

// Accountant enforces design quotas on subscription accounts.
type Accountant struct {
	store   account.Store
	catalog tier.Catalog
	counter ActiveRequestCounter
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	retry   retry.Policy
}

// NewAccountant creates an Accountant. Panics if store or catalog is nil.
func NewAccountant(store account.Store, catalog tier.Catalog, opts ...Option) *Accountant {
	if store == nil {
		panic("usage: account.Store is required")
	}
	if catalog == nil {
		panic("usage: tier.Catalog is required")
	}

	a := &Accountant{
		store:   store,
		catalog: catalog,
		metrics: NewMetrics(nil),
		logger:  slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
		retry:   retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ResetMonthlyUsageIfDue zeroes the monthly design counter when the calendar
// month (UTC) has changed since the last reset. Concurrent callers reset at
// most once; only the one that performed the reset gets true.
func (a *Accountant) ResetMonthlyUsageIfDue(ctx context.Context, id uuid.UUID) (bool, error) {
	reset, err := a.store.ResetUsageIfDue(ctx, id, a.now())
	if err != nil {
		return false, err
	}
	if reset {
		a.metrics.Resets.Inc()
		a.logger.InfoContext(ctx, "monthly usage reset", logger.AccountID(id))
	}
	return reset, nil
}

// IncrementDesignUsage counts one design request against the monthly quota
// and returns the new count. The monthly counter is reset first when due.
func (a *Accountant) IncrementDesignUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	acct, t, err := a.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if !acct.IsActive() {
		return 0, account.ErrAccountInactive
	}

	if _, err := a.ResetMonthlyUsageIfDue(ctx, id); err != nil {
		return 0, err
	}

	used, err := a.store.IncrementDesignsUsed(ctx, id, t.MonthlyDesignQuota)
	switch {
	case errors.Is(err, account.ErrUsageLimitReached):
		a.metrics.rejected(QuotaMonthly)
		a.logger.InfoContext(ctx, "monthly design quota reached",
			logger.AccountID(id),
			logger.TierID(t.ID),
			logger.QuotaKind(string(QuotaMonthly)),
			logger.Usage(used, t.MonthlyDesignQuota),
		)
		return used, &QuotaExceededError{Kind: QuotaMonthly, Limit: t.MonthlyDesignQuota, Used: used}
	case err != nil:
		return used, err
	}

	a.metrics.Increments.Inc()
	return used, nil
}

// SetActiveRequestCount stores the number of design requests in flight.
// Counts above the tier's concurrent quota are rejected. The write is a
// compare-and-swap against the value just read, retried on conflict.
func (a *Accountant) SetActiveRequestCount(ctx context.Context, id uuid.UUID, count int64) (int64, error) {
	if count < 0 {
		return 0, ErrInvalidCount
	}
	_, t, err := a.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := a.checkConcurrent(ctx, id, t, count); err != nil {
		return 0, err
	}
	if err := a.swapActive(ctx, id, count); err != nil {
		return 0, err
	}
	return count, nil
}

// CompareAndSetActiveRequestCount stores count only if the current value is
// expected. A mismatch returns account.ErrConcurrentUpdate without retrying.
func (a *Accountant) CompareAndSetActiveRequestCount(ctx context.Context, id uuid.UUID, expected, count int64) error {
	if count < 0 || expected < 0 {
		return ErrInvalidCount
	}
	_, t, err := a.load(ctx, id)
	if err != nil {
		return err
	}
	if err := a.checkConcurrent(ctx, id, t, count); err != nil {
		return err
	}
	return a.store.CompareAndSetActiveRequests(ctx, id, expected, count)
}

// SyncActiveRequests recounts the user's in-flight design requests from the
// configured ActiveRequestCounter and stores the result. The count is stored
// even when it exceeds the quota, since it reflects work already accepted.
func (a *Accountant) SyncActiveRequests(ctx context.Context, id uuid.UUID) (int64, error) {
	if a.counter == nil {
		return 0, ErrNoCounterConfigured
	}
	acct, t, err := a.load(ctx, id)
	if err != nil {
		return 0, err
	}

	count, err := a.counter(ctx, acct.UserID)
	if err != nil {
		return 0, errors.Join(ErrFailedToCountRequests, err)
	}
	if count < 0 {
		return 0, ErrInvalidCount
	}
	if count > t.ConcurrentDesignQuota {
		a.logger.WarnContext(ctx, "active design requests above concurrent quota",
			logger.AccountID(id),
			logger.TierID(t.ID),
			logger.Usage(count, t.ConcurrentDesignQuota),
		)
	}

	if err := a.swapActive(ctx, id, count); err != nil {
		return 0, err
	}
	return count, nil
}

// Quota is one quota's consumption.
type Quota struct {
	Used      int64
	Limit     int64
	Remaining int64
}

func newQuota(used, limit int64) Quota {
	return Quota{Used: used, Limit: limit, Remaining: max(0, limit-used)}
}

// Report summarizes an account's quota consumption.
type Report struct {
	AccountID   uuid.UUID
	TierID      string
	Monthly     Quota
	Concurrent  Quota
	NextResetAt time.Time
}

// Snapshot reports current consumption. A monthly counter that is due for a
// reset is reported as zero without writing.
func (a *Accountant) Snapshot(ctx context.Context, id uuid.UUID) (Report, error) {
	acct, t, err := a.load(ctx, id)
	if err != nil {
		return Report{}, err
	}

	now := a.now()
	used := acct.Usage.DesignsUsedThisMonth
	if acct.Usage.ResetDue(now) {
		used = 0
	}
	_, next := account.MonthWindow(now)

	return Report{
		AccountID:   acct.ID,
		TierID:      t.ID,
		Monthly:     newQuota(used, t.MonthlyDesignQuota),
		Concurrent:  newQuota(acct.Usage.ActiveDesignRequests, t.ConcurrentDesignQuota),
		NextResetAt: next,
	}, nil
}

func (a *Accountant) load(ctx context.Context, id uuid.UUID) (*account.Account, tier.Tier, error) {
	acct, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, tier.Tier{}, err
	}
	t, err := a.catalog.GetTierByID(ctx, acct.TierID)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			return nil, tier.Tier{}, err
		}
		return nil, tier.Tier{}, errors.Join(account.ErrFailedToResolveTier, err)
	}
	return acct, t, nil
}

func (a *Accountant) checkConcurrent(ctx context.Context, id uuid.UUID, t tier.Tier, count int64) error {
	if count <= t.ConcurrentDesignQuota {
		return nil
	}
	a.metrics.rejected(QuotaConcurrent)
	a.logger.InfoContext(ctx, "concurrent design quota reached",
		logger.AccountID(id),
		logger.TierID(t.ID),
		logger.QuotaKind(string(QuotaConcurrent)),
		logger.Usage(count, t.ConcurrentDesignQuota),
	)
	return &QuotaExceededError{Kind: QuotaConcurrent, Limit: t.ConcurrentDesignQuota, Used: count}
}

func (a *Accountant) swapActive(ctx context.Context, id uuid.UUID, count int64) error {
	return retry.Do(ctx, a.retry, func(ctx context.Context) error {
		acct, err := a.store.Get(ctx, id)
		if err != nil {
			return err
		}
		err = a.store.CompareAndSetActiveRequests(ctx, id, acct.Usage.ActiveDesignRequests, count)
		if errors.Is(err, account.ErrConcurrentUpdate) {
			return retry.Transient("usage.set_active_requests", err)
		}
		return err
	})
}
