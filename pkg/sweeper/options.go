package sweeper

import (
	"log/slog"
	"time"
)

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source. Nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records sweep outcomes. Nil is ignored.
func WithMetrics(m *Metrics) Option {
	return func(s *Sweeper) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithBatchSize sets how many due accounts are loaded per page.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batch = n
		}
	}
}

// WithMaxPages caps how many pages one sweep walks.
func WithMaxPages(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.maxPages = n
		}
	}
}
