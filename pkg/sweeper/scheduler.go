package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler returns a cron scheduler (UTC) that runs a sweep on cfg.Schedule.
// Overlapping runs are skipped. The caller starts and stops it.
func (s *Sweeper) Scheduler(cfg Config) (*cron.Cron, error) {
	if cfg.BatchSize > 0 {
		s.batch = cfg.BatchSize
	}
	if cfg.MaxPages > 0 {
		s.maxPages = cfg.MaxPages
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	cl := cronLogger{log: s.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		// Run logs its own outcome.
		_, _ = s.Run(ctx)
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
