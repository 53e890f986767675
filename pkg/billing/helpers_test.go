package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/billing"
	"github.com/canvascue/accounting/pkg/retry"
	"github.com/canvascue/accounting/pkg/store/memstore"
	"github.com/canvascue/accounting/pkg/tier"
)

var now = time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateOrUpdateSubscription(ctx context.Context, req billing.SubscriptionRequest) (*billing.SubscriptionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionResult), args.Error(1)
}

func (m *mockProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookEvent, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.WebhookEvent), args.Error(1)
}

func testCatalog() tier.Catalog {
	return tier.MustInMemCatalog(
		tier.Tier{
			ID: "starter", Name: "Starter", Level: 1, Currency: "USD", Active: true,
			MonthlyPrice: decimal.RequireFromString("399"), QuarterlyPrice: decimal.RequireFromString("1077"),
			MonthlyDesignQuota: 10, ConcurrentDesignQuota: 1,
		},
		tier.Tier{
			ID: "growth", Name: "Growth", Level: 2, Currency: "USD", Active: true,
			MonthlyPrice: decimal.RequireFromString("799"), QuarterlyPrice: decimal.RequireFromString("2157"),
			MonthlyDesignQuota: 30, ConcurrentDesignQuota: 2,
		},
	)
}

func testPrices(t *testing.T) *billing.Prices {
	t.Helper()
	prices, err := billing.ParsePrices(map[string]string{
		"starter.monthly":   "pri_starter_m",
		"starter.quarterly": "pri_starter_q",
		"growth.monthly":    "pri_growth_m",
		"growth.quarterly":  "pri_growth_q",
	})
	require.NoError(t, err)
	return prices
}

func newAccounts(t *testing.T) *account.Service {
	t.Helper()
	svc, _ := newAccountsWithStore(t)
	return svc
}

func newAccountsWithStore(t *testing.T) (*account.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc := account.NewService(store, testCatalog(),
		account.WithClock(func() time.Time { return now }),
		account.WithRetryPolicy(retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond}),
	)
	return svc, store
}

func openAccount(t *testing.T, svc *account.Service, trialDays int) *account.Account {
	t.Helper()
	acct, err := svc.Open(context.Background(), account.OpenParams{
		UserID:        uuid.New(),
		TierID:        "starter",
		BillingPeriod: tier.PeriodMonthly,
		TrialDays:     trialDays,
	})
	require.NoError(t, err)
	return acct
}
