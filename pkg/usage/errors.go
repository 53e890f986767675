package usage

import (
	"errors"
	"fmt"
)

var (
	ErrQuotaExceeded         = errors.New("usage quota exceeded")
	ErrInvalidCount          = errors.New("active request count must not be negative")
	ErrNoCounterConfigured   = errors.New("no active request counter configured")
	ErrFailedToCountRequests = errors.New("failed to count active design requests")
)

// QuotaKind identifies which quota was hit.
type QuotaKind string

const (
	QuotaMonthly    QuotaKind = "monthly"
	QuotaConcurrent QuotaKind = "concurrent"
)

// QuotaExceededError reports a rejected increment or count update.
type QuotaExceededError struct {
	Kind  QuotaKind
	Limit int64
	Used  int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s design quota exceeded: %d of %d used", e.Kind, e.Used, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// IsQuotaExceeded reports whether err is a QuotaExceededError of the given kind.
func IsQuotaExceeded(err error, kind QuotaKind) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe) && qe.Kind == kind
}
