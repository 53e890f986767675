package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider is the payment platform boundary. Calls go out from the owning
// request handler; results come back as webhook events fed to a Reconciler.
type Provider interface {
	// CreateOrUpdateSubscription starts a checkout for a new subscription, or
	// switches the price of an existing one when req.SubscriptionID is set.
	CreateOrUpdateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error)

	// CancelSubscription schedules cancellation at the end of the billing period.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// ParseWebhook verifies the signature and normalizes the event.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// SubscriptionRequest describes a subscription change.
type SubscriptionRequest struct {
	AccountID      uuid.UUID
	UserID         uuid.UUID
	PriceID        string // Provider's price identifier
	SubscriptionID string // Empty for a new subscription
	Email          string // Optional billing email
	SuccessURL     string // Redirect after checkout
}

// SubscriptionResult is what the provider returned for a SubscriptionRequest.
type SubscriptionResult struct {
	SubscriptionID string    // Set when an existing subscription was updated
	CheckoutURL    string    // Set when the customer must complete a checkout
	TransactionID  string    // Provider's transaction identifier
	ExpiresAt      time.Time // Checkout link expiration
}

// EventType is the normalized billing event type.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventSubscriptionPaused   EventType = "subscription_paused"
	EventSubscriptionResumed  EventType = "subscription_resumed"
	EventPaymentSucceeded     EventType = "payment_succeeded"
	EventPaymentFailed        EventType = "payment_failed"
)

// WebhookEvent is a normalized provider event.
type WebhookEvent struct {
	ID             string
	Type           EventType
	ProviderEvent  string    // Original provider event name
	AccountID      uuid.UUID // From the custom data we attached at checkout
	SubscriptionID string
	CustomerID     string // Provider's customer ID
	Status         string // Provider's subscription or transaction status
	PriceID        string
	Origin         string // Transaction origin, e.g. "subscription_recurring"
	OccurredAt     time.Time
	Raw            map[string]any
}

// IsRenewal reports whether a payment event is a recurring charge rather
// than the first purchase.
func (e *WebhookEvent) IsRenewal() bool {
	return e.Origin == "subscription_recurring"
}
