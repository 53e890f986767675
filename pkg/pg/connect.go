package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canvascue/accounting/pkg/retry"
)

// Connect opens a PostgreSQL pool, retrying with backoff until the database
// answers a ping or the retry budget is spent.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MaxIdleConns
	connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	connConfig.MaxConnLifetime = cfg.MaxConnLifetime

	policy := retry.Policy{
		MaxRetries:    uint64(max(cfg.RetryAttempts-1, 0)),
		BaseDelay:     cfg.RetryInterval,
		JitterPercent: 20,
	}

	pool, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*pgxpool.Pool, error) {
		conn, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			return nil, retry.Transient("pg.connect", err)
		}
		// Ping catches authentication and permission issues the pool defers.
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, retry.Transient("pg.ping", err)
		}
		return conn, nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	return pool, nil
}
