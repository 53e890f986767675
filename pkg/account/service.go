package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/logger"
	"github.com/canvascue/accounting/pkg/retry"
	"github.com/canvascue/accounting/pkg/tier"
)

// errUnchanged lets a mutation skip the save when it had nothing to do.
var errUnchanged = errors.New("account unchanged")

// OpenParams describes a new subscription.
type OpenParams struct {
	UserID                 uuid.UUID
	TierID                 string
	BillingPeriod          tier.BillingPeriod
	TrialDays              int
	ProviderSubscriptionID string
	ProviderCustomerID     string
}

// Service persists account lifecycle changes.
// Every mutation is load, apply, conditional save; version conflicts are
// retried with backoff.
type Service struct {
	store   Store
	catalog tier.Catalog
	logger  *slog.Logger
	now     func() time.Time
	retry   retry.Policy
}

// NewService creates a Service. Panics if store or catalog is nil.
func NewService(store Store, catalog tier.Catalog, opts ...ServiceOption) *Service {
	if store == nil {
		panic("account: Store is required")
	}
	if catalog == nil {
		panic("account: tier.Catalog is required")
	}

	s := &Service{
		store:   store,
		catalog: catalog,
		logger:  slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
		retry:   retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a new account for a user. With TrialDays > 0 the account
// starts trialing and its first billing date is the end of the trial.
func (s *Service) Open(ctx context.Context, p OpenParams) (*Account, error) {
	if p.UserID == uuid.Nil {
		return nil, errors.Join(ErrInvalidAccount, errors.New("user ID is required"))
	}
	if !p.BillingPeriod.Valid() {
		return nil, tier.ErrInvalidBillingPeriod
	}
	if p.TrialDays < 0 {
		return nil, errors.Join(ErrInvalidAccount, errors.New("trial days must not be negative"))
	}

	t, err := s.resolveTier(ctx, p.TierID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct := &Account{
		ID:                     uuid.New(),
		UserID:                 p.UserID,
		TierID:                 t.ID,
		BillingPeriod:          p.BillingPeriod,
		Status:                 StatusActive,
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       p.BillingPeriod.Advance(now),
		Usage:                  Usage{LastResetAt: now},
		ProviderSubscriptionID: p.ProviderSubscriptionID,
		ProviderCustomerID:     p.ProviderCustomerID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	acct.NextBillingAt = acct.CurrentPeriodEnd

	if p.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, p.TrialDays)
		acct.Status = StatusTrialing
		acct.TrialEndsAt = &trialEnd
		acct.CurrentPeriodEnd = trialEnd
		acct.NextBillingAt = trialEnd
	}

	if err := s.store.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrActiveAccountExists) {
			return nil, err
		}
		return nil, errors.Join(ErrFailedToCreateAccount, err)
	}

	s.logger.InfoContext(ctx, "subscription account opened",
		logger.AccountID(acct.ID),
		logger.UserID(acct.UserID),
		logger.TierID(acct.TierID),
		logger.Status(string(acct.Status)),
	)
	return acct, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.store.Get(ctx, id)
}

// GetActiveForUser returns the user's active or trialing account.
func (s *Service) GetActiveForUser(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return s.store.GetActiveByUser(ctx, userID)
}

// Cancel cancels the account. Canceling an already canceled account succeeds
// without touching the original cancellation record.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Account, error) {
	return s.mutate(ctx, id, "cancel", func(a *Account, now time.Time) error {
		if a.Status == StatusCanceled {
			return errUnchanged
		}
		return a.Cancel(reason, now)
	})
}

// Pause suspends an active account until resumeAt, or indefinitely when nil.
func (s *Service) Pause(ctx context.Context, id uuid.UUID, resumeAt *time.Time) (*Account, error) {
	return s.mutate(ctx, id, "pause", func(a *Account, now time.Time) error {
		return a.Pause(resumeAt, now)
	})
}

// Resume reactivates a paused account.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.mutate(ctx, id, "resume", func(a *Account, now time.Time) error {
		return a.Resume(now)
	})
}

// Activate marks a trialing or past-due account as paid.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.mutate(ctx, id, "activate", func(a *Account, now time.Time) error {
		return a.Activate(now)
	})
}

// MarkPastDue records a failed payment.
func (s *Service) MarkPastDue(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.mutate(ctx, id, "mark_past_due", func(a *Account, now time.Time) error {
		return a.MarkPastDue(now)
	})
}

// Expire ends the account.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.mutate(ctx, id, "expire", func(a *Account, now time.Time) error {
		return a.Expire(now)
	})
}

// Renew rolls the billing period forward after a successful payment.
func (s *Service) Renew(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.mutate(ctx, id, "renew", func(a *Account, now time.Time) error {
		return a.Renew(now)
	})
}

// ChangeTier moves an active account to another active tier.
func (s *Service) ChangeTier(ctx context.Context, id uuid.UUID, tierID string, period tier.BillingPeriod) (*Account, error) {
	t, err := s.resolveTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "change_tier", func(a *Account, now time.Time) error {
		if a.TierID == t.ID && a.BillingPeriod == period {
			return errUnchanged
		}
		return a.ChangeTier(t, period, now)
	})
}

// LinkProvider records the billing provider's identifiers for the account.
func (s *Service) LinkProvider(ctx context.Context, id uuid.UUID, subscriptionID, customerID string) (*Account, error) {
	return s.mutate(ctx, id, "link_provider", func(a *Account, now time.Time) error {
		if a.ProviderSubscriptionID == subscriptionID && a.ProviderCustomerID == customerID {
			return errUnchanged
		}
		a.ProviderSubscriptionID = subscriptionID
		a.ProviderCustomerID = customerID
		a.UpdatedAt = now
		return nil
	})
}

func (s *Service) resolveTier(ctx context.Context, id string) (tier.Tier, error) {
	t, err := s.catalog.GetTierByID(ctx, id)
	if err != nil {
		if errors.Is(err, tier.ErrTierNotFound) {
			return tier.Tier{}, err
		}
		return tier.Tier{}, errors.Join(ErrFailedToResolveTier, err)
	}
	if !t.Active {
		return tier.Tier{}, errors.Join(tier.ErrTierNotFound, errors.New("tier is not offered"))
	}
	return t, nil
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*Account, time.Time) error) (*Account, error) {
	return retry.DoValue(ctx, s.retry, func(ctx context.Context) (*Account, error) {
		acct, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		from := acct.Status
		if err := fn(acct, s.now()); err != nil {
			if errors.Is(err, errUnchanged) {
				return acct, nil
			}
			return nil, err
		}

		if err := s.store.Save(ctx, acct); err != nil {
			if errors.Is(err, ErrConcurrentUpdate) {
				return nil, retry.Transient("account."+op, err)
			}
			return nil, err
		}

		s.logger.InfoContext(ctx, "subscription account updated",
			logger.AccountID(acct.ID),
			logger.Event(op),
			logger.Transition(string(from), string(acct.Status)),
		)
		return acct, nil
	})
}
