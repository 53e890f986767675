package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/billingcycle"
	"github.com/canvascue/accounting/pkg/tier"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithProjector sets the projector used for proration previews.
func WithProjector(p *billingcycle.Projector) ManagerOption {
	return func(m *Manager) {
		if p != nil {
			m.projector = p
		}
	}
}

// Manager runs the provider side of subscription changes for request
// handlers and records the outcome on the account.
type Manager struct {
	provider  Provider
	accounts  *account.Service
	catalog   tier.Catalog
	prices    *Prices
	projector *billingcycle.Projector
}

// NewManager creates a Manager. Panics if a dependency is nil.
func NewManager(provider Provider, accounts *account.Service, catalog tier.Catalog, prices *Prices, opts ...ManagerOption) *Manager {
	if provider == nil || accounts == nil || catalog == nil || prices == nil {
		panic("billing: provider, accounts, catalog and prices are required")
	}
	m := &Manager{
		provider:  provider,
		accounts:  accounts,
		catalog:   catalog,
		prices:    prices,
		projector: billingcycle.NewProjector(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Checkout starts the provider checkout for an account's current plan.
func (m *Manager) Checkout(ctx context.Context, accountID uuid.UUID, email, successURL string) (*SubscriptionResult, error) {
	acct, err := m.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	priceID, err := m.prices.PriceID(Plan{TierID: acct.TierID, Period: acct.BillingPeriod})
	if err != nil {
		return nil, err
	}
	return m.provider.CreateOrUpdateSubscription(ctx, SubscriptionRequest{
		AccountID:  acct.ID,
		UserID:     acct.UserID,
		PriceID:    priceID,
		Email:      email,
		SuccessURL: successURL,
	})
}

// PreviewChange prices a switch to another tier or period for the rest of
// the current period.
func (m *Manager) PreviewChange(ctx context.Context, accountID uuid.UUID, tierID string, period tier.BillingPeriod) (billingcycle.Proration, error) {
	acct, err := m.accounts.Get(ctx, accountID)
	if err != nil {
		return billingcycle.Proration{}, err
	}
	current, err := m.catalog.GetTierByID(ctx, acct.TierID)
	if err != nil {
		return billingcycle.Proration{}, err
	}
	next, err := m.catalog.GetTierByID(ctx, tierID)
	if err != nil {
		return billingcycle.Proration{}, err
	}
	return m.projector.CalculateProration(acct, current, next, period)
}

// ChangePlan switches the provider subscription to the new plan's price,
// then moves the account to the new tier. A change that lowers quotas is
// refused while the account has more requests in flight than the target
// tier allows at once.
func (m *Manager) ChangePlan(ctx context.Context, accountID uuid.UUID, tierID string, period tier.BillingPeriod) (*account.Account, error) {
	acct, err := m.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.IsActive() {
		return nil, account.ErrAccountInactive
	}
	if acct.ProviderSubscriptionID == "" {
		return nil, ErrMissingSubscriptionID
	}
	if err := m.checkDowngrade(ctx, acct, tierID); err != nil {
		return nil, err
	}
	priceID, err := m.prices.PriceID(Plan{TierID: tierID, Period: period})
	if err != nil {
		return nil, err
	}

	if _, err := m.provider.CreateOrUpdateSubscription(ctx, SubscriptionRequest{
		AccountID:      acct.ID,
		UserID:         acct.UserID,
		PriceID:        priceID,
		SubscriptionID: acct.ProviderSubscriptionID,
	}); err != nil {
		return nil, err
	}

	return m.accounts.ChangeTier(ctx, accountID, tierID, period)
}

func (m *Manager) checkDowngrade(ctx context.Context, acct *account.Account, tierID string) error {
	current, err := m.catalog.GetTierByID(ctx, acct.TierID)
	if err != nil {
		return err
	}
	target, err := m.catalog.GetTierByID(ctx, tierID)
	if err != nil {
		return err
	}
	change := tier.Compare(current, target)
	if change.ReducesQuotas() && acct.Usage.ActiveDesignRequests > target.ConcurrentDesignQuota {
		return fmt.Errorf("%w: %d active, %s allows %d",
			ErrDowngradeBlocked, acct.Usage.ActiveDesignRequests, target.ID, target.ConcurrentDesignQuota)
	}
	return nil
}

// Cancel cancels the provider subscription, if any, then the account.
// The account is canceled even when it was never linked to the provider.
func (m *Manager) Cancel(ctx context.Context, accountID uuid.UUID, reason string) (*account.Account, error) {
	acct, err := m.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Status == account.StatusCanceled {
		return acct, nil
	}
	if acct.ProviderSubscriptionID != "" {
		if err := m.provider.CancelSubscription(ctx, acct.ProviderSubscriptionID); err != nil {
			return nil, fmt.Errorf("failed to cancel subscription %s: %w", acct.ProviderSubscriptionID, err)
		}
	}
	return m.accounts.Cancel(ctx, accountID, reason)
}
