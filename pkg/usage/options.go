package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/retry"
)

// ActiveRequestCounter returns how many design requests a user has in flight.
// It is backed by the design request store, which this package does not own.
type ActiveRequestCounter func(ctx context.Context, userID uuid.UUID) (int64, error)

// Option configures an Accountant.
type Option func(*Accountant)

// WithClock overrides the time source. Nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(a *Accountant) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(a *Accountant) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the counters updated by the accountant. Nil is ignored.
func WithMetrics(m *Metrics) Option {
	return func(a *Accountant) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithActiveRequestCounter sets the source used by SyncActiveRequests.
func WithActiveRequestCounter(fn ActiveRequestCounter) Option {
	return func(a *Accountant) {
		a.counter = fn
	}
}

// WithRetryPolicy sets how compare-and-swap conflicts are retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Accountant) {
		a.retry = p
	}
}
