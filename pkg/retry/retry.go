package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxRetries    uint64        `env:"MAX_RETRIES" envDefault:"5"`
	BaseDelay     time.Duration `env:"BASE_DELAY" envDefault:"20ms"`
	MaxDelay      time.Duration `env:"MAX_DELAY" envDefault:"1s"`
	JitterPercent uint64        `env:"JITTER_PERCENT" envDefault:"20"`
}

// DefaultPolicy is tuned for in-process conflicts: a handful of quick retries.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    5,
		BaseDelay:     20 * time.Millisecond,
		MaxDelay:      time.Second,
		JitterPercent: 20,
	}
}

func (p Policy) backoff() goretry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = 20 * time.Millisecond
	}

	b := goretry.NewExponential(base)
	if p.JitterPercent > 0 {
		b = goretry.WithJitterPercent(p.JitterPercent, b)
	}
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	return goretry.WithMaxRetries(p.MaxRetries, b)
}

// Do runs fn until it succeeds, returns a non-transient error, the policy is
// exhausted or ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
