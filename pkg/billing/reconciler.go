package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/logger"
)

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithPrices lets the reconciler follow plan changes made in the provider.
func WithPrices(p *Prices) ReconcilerOption {
	return func(r *Reconciler) {
		r.prices = p
	}
}

// WithReconcilerLogger sets the logger. Nil is ignored.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reconciler applies provider webhook events to subscription accounts.
//
// Providers deliver events at least once and not always in order, so an
// event whose lifecycle change is not allowed from the account's current
// status is logged and skipped rather than failed.
type Reconciler struct {
	provider Provider
	accounts *account.Service
	prices   *Prices
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. Panics if provider or accounts is nil.
func NewReconciler(provider Provider, accounts *account.Service, opts ...ReconcilerOption) *Reconciler {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if accounts == nil {
		panic("billing: account.Service is required")
	}
	r := &Reconciler{
		provider: provider,
		accounts: accounts,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleWebhook verifies, parses and applies a raw webhook delivery.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := r.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	return r.Apply(ctx, event)
}

// Apply maps a normalized event onto the account lifecycle.
func (r *Reconciler) Apply(ctx context.Context, event *WebhookEvent) error {
	if event.AccountID == uuid.Nil {
		return fmt.Errorf("%w: %s", ErrMissingAccountID, event.ProviderEvent)
	}
	id := event.AccountID
	ctx = logger.ContextWithAccountID(ctx, id)

	log := r.logger.With(
		logger.EventType(string(event.Type)),
		logger.ProviderSubscriptionID(event.SubscriptionID),
	)

	var err error
	switch event.Type {
	case EventSubscriptionCreated:
		if event.SubscriptionID != "" {
			if _, err = r.accounts.LinkProvider(ctx, id, event.SubscriptionID, event.CustomerID); err != nil {
				break
			}
		}
		if event.Status == "active" {
			_, err = r.accounts.Activate(ctx, id)
		}

	case EventSubscriptionUpdated:
		err = r.applyStatus(ctx, id, event.Status)
		if err == nil || isSkippable(err) {
			if planErr := r.applyPlan(ctx, id, event.PriceID); planErr != nil {
				err = planErr
			}
		}

	case EventSubscriptionCanceled:
		_, err = r.accounts.Cancel(ctx, id, "canceled in billing provider")

	case EventSubscriptionPaused:
		_, err = r.accounts.Pause(ctx, id, nil)

	case EventSubscriptionResumed:
		_, err = r.accounts.Resume(ctx, id)

	case EventPaymentSucceeded:
		if event.IsRenewal() {
			_, err = r.accounts.Renew(ctx, id)
		} else {
			_, err = r.accounts.Activate(ctx, id)
		}

	case EventPaymentFailed:
		_, err = r.accounts.MarkPastDue(ctx, id)

	default:
		log.DebugContext(ctx, "ignoring unhandled billing event", logger.Event(event.ProviderEvent))
		return nil
	}

	if isSkippable(err) {
		log.InfoContext(ctx, "billing event does not apply to current account status", logger.Error(err))
		return nil
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to apply billing event", logger.Error(err))
		return err
	}

	log.InfoContext(ctx, "billing event applied")
	return nil
}

func (r *Reconciler) applyStatus(ctx context.Context, id uuid.UUID, status string) error {
	var err error
	switch status {
	case "active":
		_, err = r.accounts.Activate(ctx, id)
	case "past_due":
		_, err = r.accounts.MarkPastDue(ctx, id)
	case "paused":
		_, err = r.accounts.Pause(ctx, id, nil)
	case "canceled":
		_, err = r.accounts.Cancel(ctx, id, "canceled in billing provider")
	}
	return err
}

func (r *Reconciler) applyPlan(ctx context.Context, id uuid.UUID, priceID string) error {
	if r.prices == nil || priceID == "" {
		return nil
	}
	plan, ok := r.prices.Plan(priceID)
	if !ok {
		return nil
	}
	_, err := r.accounts.ChangeTier(ctx, id, plan.TierID, plan.Period)
	return err
}

// isSkippable reports errors that mean "this event is stale for the account".
func isSkippable(err error) bool {
	return errors.Is(err, account.ErrInvalidTransition) || errors.Is(err, account.ErrAccountInactive)
}
