package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck acquires a pooled connection and pings it.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			stat := pool.Stat()
			return errors.Join(ErrHealthcheckFailed,
				fmt.Errorf("pool %d/%d connections in use: %w", stat.AcquiredConns(), stat.MaxConns(), err))
		}
		return nil
	}
}
