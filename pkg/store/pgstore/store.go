// Package pgstore implements account.Store on PostgreSQL via pgx.
//
// Quota and version checks live in the WHERE clause of single UPDATE
// statements, so concurrent callers are serialized by row locks and never
// observe a stale read. The active-slot rule is a partial unique index.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/pg"
	"github.com/canvascue/accounting/pkg/tier"
)

const activeUserIndex = "subscription_accounts_active_user_idx"

// DB is the subset of *pgxpool.Pool and pgx.Tx the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements account.Store.
type Store struct {
	db DB
}

var _ account.Store = (*Store)(nil)

// New returns a store over db. The schema comes from Migrations.
func New(db DB) *Store {
	if db == nil {
		panic("pgstore: db is required")
	}
	return &Store{db: db}
}

const selectColumns = `
	id, user_id, tier_id, billing_period, status,
	current_period_start, current_period_end, next_billing_at,
	trial_ends_at, paused_at, resume_at,
	designs_used_this_month, active_design_requests, usage_last_reset_at,
	canceled_at, cancellation_reason,
	provider_subscription_id, provider_customer_id,
	created_at, updated_at, version`

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT`+selectColumns+` FROM subscription_accounts WHERE id = $1`, id)
	return scanOne(row)
}

func (s *Store) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT`+selectColumns+`
		FROM subscription_accounts
		WHERE user_id = $1 AND status IN ('active', 'trialing')`, userID)
	return scanOne(row)
}

func (s *Store) Create(ctx context.Context, acct *account.Account) error {
	canceledAt, reason := cancellationColumns(acct)
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscription_accounts (
			id, user_id, tier_id, billing_period, status,
			current_period_start, current_period_end, next_billing_at,
			trial_ends_at, paused_at, resume_at,
			designs_used_this_month, active_design_requests, usage_last_reset_at,
			canceled_at, cancellation_reason,
			provider_subscription_id, provider_customer_id,
			created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1)`,
		acct.ID, acct.UserID, acct.TierID, string(acct.BillingPeriod), string(acct.Status),
		acct.CurrentPeriodStart, acct.CurrentPeriodEnd, acct.NextBillingAt,
		acct.TrialEndsAt, acct.PausedAt, acct.ResumeAt,
		acct.Usage.DesignsUsedThisMonth, acct.Usage.ActiveDesignRequests, acct.Usage.LastResetAt,
		canceledAt, reason,
		acct.ProviderSubscriptionID, acct.ProviderCustomerID,
		acct.CreatedAt, acct.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			if pg.ConstraintName(err) == activeUserIndex {
				return account.ErrActiveAccountExists
			}
			return account.ErrInvalidAccount
		}
		return errors.Join(account.ErrFailedToCreateAccount, err)
	}
	acct.Version = 1
	return nil
}

func (s *Store) Save(ctx context.Context, acct *account.Account) error {
	canceledAt, reason := cancellationColumns(acct)

	var usage account.Usage
	var version int64
	err := s.db.QueryRow(ctx, `
		UPDATE subscription_accounts SET
			tier_id = $3,
			billing_period = $4,
			status = $5,
			current_period_start = $6,
			current_period_end = $7,
			next_billing_at = $8,
			trial_ends_at = $9,
			paused_at = $10,
			resume_at = $11,
			canceled_at = $12,
			cancellation_reason = $13,
			provider_subscription_id = $14,
			provider_customer_id = $15,
			updated_at = $16,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version, designs_used_this_month, active_design_requests, usage_last_reset_at`,
		acct.ID, acct.Version,
		acct.TierID, string(acct.BillingPeriod), string(acct.Status),
		acct.CurrentPeriodStart, acct.CurrentPeriodEnd, acct.NextBillingAt,
		acct.TrialEndsAt, acct.PausedAt, acct.ResumeAt,
		canceledAt, reason,
		acct.ProviderSubscriptionID, acct.ProviderCustomerID,
		acct.UpdatedAt,
	).Scan(&version, &usage.DesignsUsedThisMonth, &usage.ActiveDesignRequests, &usage.LastResetAt)
	switch {
	case err == nil:
	case pg.IsNotFoundError(err):
		if _, getErr := s.Get(ctx, acct.ID); getErr != nil {
			return getErr
		}
		return account.ErrConcurrentUpdate
	case pg.IsDuplicateKeyError(err):
		return account.ErrActiveAccountExists
	default:
		return errors.Join(account.ErrFailedToSaveAccount, err)
	}

	usage.LastResetAt = usage.LastResetAt.UTC()
	acct.Version = version
	acct.Usage = usage
	return nil
}

func (s *Store) ResetUsageIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	start, next := account.MonthWindow(now)
	tag, err := s.db.Exec(ctx, `
		UPDATE subscription_accounts
		SET designs_used_this_month = 0, usage_last_reset_at = $2
		WHERE id = $1 AND (usage_last_reset_at < $3 OR usage_last_reset_at >= $4)`,
		id, now.UTC(), start, next,
	)
	if err != nil {
		return false, errors.Join(account.ErrFailedToSaveAccount, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) IncrementDesignsUsed(ctx context.Context, id uuid.UUID, limit int64) (int64, error) {
	var used int64
	err := s.db.QueryRow(ctx, `
		UPDATE subscription_accounts
		SET designs_used_this_month = designs_used_this_month + 1
		WHERE id = $1
		  AND status IN ('active', 'trialing')
		  AND designs_used_this_month < $2
		RETURNING designs_used_this_month`,
		id, limit,
	).Scan(&used)
	if err == nil {
		return used, nil
	}
	if !pg.IsNotFoundError(err) {
		return 0, errors.Join(account.ErrFailedToSaveAccount, err)
	}

	acct, getErr := s.Get(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	if !acct.IsActive() {
		return acct.Usage.DesignsUsedThisMonth, account.ErrAccountInactive
	}
	return acct.Usage.DesignsUsedThisMonth, account.ErrUsageLimitReached
}

func (s *Store) CompareAndSetActiveRequests(ctx context.Context, id uuid.UUID, expected, count int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscription_accounts
		SET active_design_requests = $3
		WHERE id = $1 AND active_design_requests = $2`,
		id, expected, count,
	)
	if err != nil {
		return errors.Join(account.ErrFailedToSaveAccount, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return account.ErrConcurrentUpdate
}

func (s *Store) ListDue(ctx context.Context, q account.DueQuery) ([]*account.Account, error) {
	var afterAt, afterID any
	if q.After != nil {
		afterAt, afterID = q.After.NextBillingAt, q.After.ID
	}

	rows, err := s.db.Query(ctx, `SELECT`+selectColumns+`
		FROM subscription_accounts
		WHERE ((status IN ('active', 'trialing') AND next_billing_at <= $1)
		    OR (status = 'past_due' AND next_billing_at <= $2)
		    OR (status = 'canceled' AND current_period_end <= $1)
		    OR (status = 'paused' AND resume_at <= $1))
		  AND ($3::timestamptz IS NULL OR (next_billing_at, id) > ($3::timestamptz, $4::uuid))
		ORDER BY next_billing_at, id
		LIMIT NULLIF($5::int, 0)`,
		q.Now, q.PastDueCutoff(), afterAt, afterID, q.Limit,
	)
	if err != nil {
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}

	due, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*account.Account, error) {
		return scan(row)
	})
	if err != nil {
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}
	return due, nil
}

func scanOne(row pgx.Row) (*account.Account, error) {
	acct, err := scan(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, account.ErrAccountNotFound
		}
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}
	return acct, nil
}

func scan(row pgx.Row) (*account.Account, error) {
	var (
		a                  account.Account
		period, status     string
		canceledAt         *time.Time
		cancellationReason *string
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.TierID, &period, &status,
		&a.CurrentPeriodStart, &a.CurrentPeriodEnd, &a.NextBillingAt,
		&a.TrialEndsAt, &a.PausedAt, &a.ResumeAt,
		&a.Usage.DesignsUsedThisMonth, &a.Usage.ActiveDesignRequests, &a.Usage.LastResetAt,
		&canceledAt, &cancellationReason,
		&a.ProviderSubscriptionID, &a.ProviderCustomerID,
		&a.CreatedAt, &a.UpdatedAt, &a.Version,
	)
	if err != nil {
		return nil, err
	}

	a.BillingPeriod = tier.BillingPeriod(period)
	a.Status = account.Status(status)
	if canceledAt != nil {
		a.Cancellation = &account.Cancellation{At: canceledAt.UTC()}
		if cancellationReason != nil {
			a.Cancellation.Reason = *cancellationReason
		}
	}
	normalizeTimes(&a)
	return &a, nil
}

func cancellationColumns(a *account.Account) (*time.Time, *string) {
	if a.Cancellation == nil {
		return nil, nil
	}
	at, reason := a.Cancellation.At, a.Cancellation.Reason
	return &at, &reason
}

// normalizeTimes converts scanned timestamps, which pgx returns in the local
// zone, to UTC.
func normalizeTimes(a *account.Account) {
	for _, t := range []*time.Time{
		&a.CurrentPeriodStart, &a.CurrentPeriodEnd, &a.NextBillingAt,
		&a.Usage.LastResetAt, &a.CreatedAt, &a.UpdatedAt,
	} {
		*t = t.UTC()
	}
	for _, t := range []*time.Time{a.TrialEndsAt, a.PausedAt, a.ResumeAt} {
		if t != nil {
			*t = t.UTC()
		}
	}
}
