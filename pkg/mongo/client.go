package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/canvascue/accounting/pkg/retry"
)

// New creates a client and waits until the server answers a ping.
// Attempts are spaced with exponential backoff starting at cfg.RetryInterval.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)

	policy := retry.Policy{
		MaxRetries: uint64(max(cfg.RetryAttempts-1, 0)),
		BaseDelay:  cfg.RetryInterval,
	}
	client, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*mongo.Client, error) {
		c, err := mongo.Connect(opts)
		if err != nil {
			// Option validation errors will not heal on retry.
			return nil, err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.WithoutCancel(ctx))
			return nil, retry.Transient("mongo.ping", err)
		}
		return c, nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnectToMongo, err)
	}
	return client, nil
}

// NewWithDatabase connects and returns cfg.Database.
func NewWithDatabase(ctx context.Context, cfg Config) (*mongo.Database, error) {
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(cfg.Database), nil
}
