package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string            `env:"PADDLE_API_KEY,required"`
	WebhookSecret string            `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string            `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	Prices        map[string]string `env:"PADDLE_PRICES"`
	Timeout       time.Duration     `env:"PADDLE_TIMEOUT" envDefault:"10s"`
}

const (
	customDataAccountID = "account_id"
	customDataUserID    = "user_id"
)

// PaddleProvider implements Provider for Paddle Billing.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

var _ Provider = (*PaddleProvider)(nil)

// NewPaddleProvider creates a Paddle provider for the configured environment.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
	}, nil
}

// CreateOrUpdateSubscription creates a checkout transaction for new
// subscriptions and swaps the price on existing ones.
func (p *PaddleProvider) CreateOrUpdateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error) {
	if req.PriceID == "" {
		return nil, ErrMissingPriceID
	}
	if req.SubscriptionID != "" {
		return p.updateSubscriptionPrice(ctx, req)
	}
	if req.AccountID == uuid.Nil {
		return nil, ErrMissingAccountID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			customDataAccountID: req.AccountID.String(),
			customDataUserID:    req.UserID.String(),
		},
	}
	if req.Email != "" {
		transactionReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrProviderError, fmt.Errorf("failed to create paddle transaction: %w", err))
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &SubscriptionResult{
		CheckoutURL:   *transaction.Checkout.URL,
		TransactionID: transaction.ID,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}, nil
}

// CancelSubscription cancels at the end of the current billing period so the
// customer keeps what they paid for.
func (p *PaddleProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return ErrMissingSubscriptionID
	}
	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return errors.Join(ErrProviderError, fmt.Errorf("failed to cancel paddle subscription: %w", err))
	}
	return nil
}

// ParseWebhook verifies the Paddle-Signature header and normalizes the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	return decodePaddleEvent(payload)
}

type paddleEvent struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

func decodePaddleEvent(payload []byte) (*WebhookEvent, error) {
	var pe paddleEvent
	if err := json.Unmarshal(payload, &pe); err != nil {
		return nil, errors.Join(ErrInvalidWebhookPayload, err)
	}
	if pe.EventType == "" {
		return nil, errors.Join(ErrInvalidWebhookPayload, errors.New("event_type is empty"))
	}

	event := &WebhookEvent{
		ID:            pe.EventID,
		Type:          mapPaddleEventType(pe.EventType),
		ProviderEvent: pe.EventType,
		OccurredAt:    pe.OccurredAt,
		Status:        stringField(pe.Data, "status"),
		CustomerID:    stringField(pe.Data, "customer_id"),
		Raw:           pe.Data,
	}

	if custom, ok := pe.Data["custom_data"].(map[string]any); ok {
		if raw, ok := custom[customDataAccountID].(string); ok {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, errors.Join(ErrInvalidWebhookPayload, fmt.Errorf("invalid account ID %q: %w", raw, err))
			}
			event.AccountID = id
		}
	}

	items, _ := pe.Data["items"].([]any)
	var first map[string]any
	if len(items) > 0 {
		first, _ = items[0].(map[string]any)
	}

	switch {
	case strings.HasPrefix(pe.EventType, "subscription."):
		event.SubscriptionID = stringField(pe.Data, "id")
		if price, ok := first["price"].(map[string]any); ok {
			event.PriceID = stringField(price, "id")
		}
	case strings.HasPrefix(pe.EventType, "transaction."):
		event.SubscriptionID = stringField(pe.Data, "subscription_id")
		event.Origin = stringField(pe.Data, "origin")
		event.PriceID = stringField(first, "price_id")
	}

	return event, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "subscription.created", "subscription.activated":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.past_due", "subscription.trialing":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCanceled
	case "subscription.paused":
		return EventSubscriptionPaused
	case "subscription.resumed":
		return EventSubscriptionResumed
	case "transaction.completed", "transaction.paid":
		return EventPaymentSucceeded
	case "transaction.payment_failed", "transaction.past_due":
		return EventPaymentFailed
	default:
		return EventType(paddleEvent)
	}
}
