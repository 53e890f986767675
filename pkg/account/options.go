package account

import (
	"log/slog"
	"time"

	"github.com/canvascue/accounting/pkg/retry"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithClock overrides the time source. Nil is ignored.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for lifecycle events. Nil is ignored.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetryPolicy sets how version conflicts are retried.
func WithRetryPolicy(p retry.Policy) ServiceOption {
	return func(s *Service) {
		s.retry = p
	}
}
