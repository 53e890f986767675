// Package billing connects subscription accounts to the payment provider.
//
// Provider is the outbound boundary; PaddleProvider implements it on top of
// the Paddle Billing SDK. NewFromConfig wraps it in a ResilientProvider so
// every call runs under a timeout and timeouts surface as
// retry.TransientError:
//
//	provider, prices, err := billing.NewFromConfig(cfg, billing.WithProviderLogger(log))
//
// Manager is what request handlers call to start a checkout, change plan or
// cancel. Reconciler takes the provider's webhooks and moves the account
// through its lifecycle; checkout transactions carry the account ID in their
// custom data so events can be routed without a lookup table.
//
// Prices maps "<tier>.<period>" keys to provider price IDs, usually loaded
// from PADDLE_PRICES:
//
//	PADDLE_PRICES=starter.monthly:pri_01,starter.quarterly:pri_02
package billing
