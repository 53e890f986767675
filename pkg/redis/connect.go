package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/canvascue/accounting/pkg/retry"
)

// Connect parses cfg.ConnectionURL and returns a client once the server
// answers PING. Attempts are spaced with exponential backoff and the whole
// sequence is bounded by cfg.ConnectTimeout.
//
// Returns ErrFailedToParseRedisConnString for a malformed URL and
// ErrRedisNotReady when every attempt fails.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	policy := retry.Policy{
		MaxRetries: uint64(max(cfg.RetryAttempts-1, 0)),
		BaseDelay:  cfg.RetryInterval,
	}
	client, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*redis.Client, error) {
		c := redis.NewClient(opt)
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, retry.Transient("redis.ping", err)
		}
		return c, nil
	})
	if err != nil {
		return nil, errors.Join(ErrRedisNotReady, err)
	}
	return client, nil
}
