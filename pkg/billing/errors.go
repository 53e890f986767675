package billing

import "errors"

var (
	ErrMissingAPIKey              = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret       = errors.New("billing provider webhook secret is required")
	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed  = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload      = errors.New("invalid webhook payload")
	ErrNoCheckoutURL              = errors.New("no checkout URL returned from provider")
	ErrMissingPriceID             = errors.New("price ID is required")
	ErrMissingSubscriptionID      = errors.New("provider subscription ID is required")
	ErrMissingAccountID           = errors.New("account ID is missing from webhook")
	ErrPriceNotConfigured         = errors.New("no provider price configured for tier and period")
	ErrInvalidPriceKey            = errors.New("invalid price key: expected <tier>.<period>")
	ErrProviderError              = errors.New("billing provider error")
	ErrDowngradeBlocked           = errors.New("active design requests exceed the target tier's concurrent quota")
)
