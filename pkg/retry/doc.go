// Package retry classifies transient failures and re-runs operations that hit
// them with bounded exponential backoff.
//
// Storage adapters and billing provider clients wrap timeouts, dropped
// connections and optimistic-lock conflicts with Transient so that callers can
// decide uniformly whether a failure is worth retrying:
//
//	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
//	    return store.Save(ctx, acct)
//	})
//
// Do retries only errors for which IsTransient reports true. Any other error is
// returned immediately. When the attempts run out, the last transient error is
// returned wrapped so that errors.Is(err, ErrTransient) still holds.
//
// Backoff timing is delegated to github.com/sethvargo/go-retry.
package retry
