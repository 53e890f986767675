// Package usage enforces the monthly and concurrent design quotas of a
// subscription account.
//
// The monthly counter resets when the UTC calendar month changes. An account
// idle across a whole month simply resets on its next use; no cycle is
// replayed.
//
// All writes are conditional at the store level, so the quota holds under
// concurrent callers: with one slot left, exactly one of many simultaneous
// IncrementDesignUsage calls succeeds and the rest get a *QuotaExceededError.
//
//	acc := usage.NewAccountant(store, catalog,
//	    usage.WithMetrics(usage.NewMetrics(prometheus.DefaultRegisterer)),
//	    usage.WithActiveRequestCounter(requests.CountActive),
//	)
//
//	used, err := acc.IncrementDesignUsage(ctx, accountID)
//	if usage.IsQuotaExceeded(err, usage.QuotaMonthly) {
//	    // tell the user to wait for next month or upgrade
//	}
package usage
