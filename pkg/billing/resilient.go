package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/canvascue/accounting/pkg/logger"
	"github.com/canvascue/accounting/pkg/retry"
)

// ResilientOption configures a ResilientProvider.
type ResilientOption func(*ResilientProvider)

// WithCallTimeout bounds each provider call attempt.
func WithCallTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientProvider) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithProviderRetry sets the retry policy for idempotent calls.
func WithProviderRetry(p retry.Policy) ResilientOption {
	return func(r *ResilientProvider) {
		r.policy = p
	}
}

// WithProviderLogger sets the logger. Nil is ignored.
func WithProviderLogger(l *slog.Logger) ResilientOption {
	return func(r *ResilientProvider) {
		if l != nil {
			r.logger = l
		}
	}
}

// ResilientProvider bounds every outbound call with a timeout and reports
// timeouts as transient errors. Idempotent calls (price updates and
// cancellations) are retried; checkout creation is not, since a retry could
// open a second checkout.
type ResilientProvider struct {
	next    Provider
	timeout time.Duration
	policy  retry.Policy
	logger  *slog.Logger
}

var _ Provider = (*ResilientProvider)(nil)

// NewResilientProvider wraps next. Panics if next is nil.
func NewResilientProvider(next Provider, opts ...ResilientOption) *ResilientProvider {
	if next == nil {
		panic("billing: Provider is required")
	}
	r := &ResilientProvider{
		next:    next,
		timeout: 10 * time.Second,
		policy: retry.Policy{
			MaxRetries:    3,
			BaseDelay:     200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			JitterPercent: 20,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ResilientProvider) CreateOrUpdateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error) {
	call := func(ctx context.Context) (*SubscriptionResult, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		res, err := r.next.CreateOrUpdateSubscription(ctx, req)
		return res, r.classify(ctx, "billing.create_or_update_subscription", err)
	}

	if req.SubscriptionID == "" {
		return call(ctx)
	}
	return retry.DoValue(ctx, r.policy, call)
}

func (r *ResilientProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return retry.Do(ctx, r.policy, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.classify(ctx, "billing.cancel_subscription", r.next.CancelSubscription(ctx, subscriptionID))
	})
}

// ParseWebhook does no I/O and is passed through.
func (r *ResilientProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	return r.next.ParseWebhook(ctx, payload, signature)
}

// classify marks timeouts of the per-call context as transient.
func (r *ResilientProvider) classify(callCtx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || retry.IsTransient(err) {
		r.logger.WarnContext(callCtx, "transient billing provider failure",
			logger.Component("billing"),
			logger.Event(op),
			logger.Error(err),
		)
		return retry.Transient(op, err)
	}
	return err
}
