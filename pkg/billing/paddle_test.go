package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/billing"
)

const webhookSecret = "pdl_ntfset_test_secret"

func sign(t *testing.T, payload []byte) string {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(ts + ":"))
	mac.Write(payload)
	return fmt.Sprintf("ts=%s;h1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newPaddle(t *testing.T) *billing.PaddleProvider {
	t.Helper()
	p, err := billing.NewPaddleProvider(billing.PaddleConfig{
		APIKey:        "pdl_sdbx_apikey_test",
		WebhookSecret: webhookSecret,
		Environment:   "sandbox",
	})
	require.NoError(t, err)
	return p
}

func TestNewPaddleProvider(t *testing.T) {
	t.Parallel()

	_, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: "s"})
	assert.ErrorIs(t, err, billing.ErrMissingAPIKey)

	_, err = billing.NewPaddleProvider(billing.PaddleConfig{APIKey: "k"})
	assert.ErrorIs(t, err, billing.ErrMissingWebhookSecret)

	_, err = billing.NewPaddleProvider(billing.PaddleConfig{APIKey: "k", WebhookSecret: "s", Environment: "staging"})
	assert.ErrorIs(t, err, billing.ErrInvalidProviderEnvironment)
}

func TestPaddleProvider_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newPaddle(t)

	_, err := p.CreateOrUpdateSubscription(ctx, billing.SubscriptionRequest{AccountID: uuid.New()})
	assert.ErrorIs(t, err, billing.ErrMissingPriceID)

	_, err = p.CreateOrUpdateSubscription(ctx, billing.SubscriptionRequest{PriceID: "pri_1"})
	assert.ErrorIs(t, err, billing.ErrMissingAccountID)

	assert.ErrorIs(t, p.CancelSubscription(ctx, ""), billing.ErrMissingSubscriptionID)
}

func TestPaddleProvider_ParseWebhook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newPaddle(t)
	accountID := uuid.New()

	t.Run("subscription event", func(t *testing.T) {
		t.Parallel()
		payload := []byte(fmt.Sprintf(`{
			"event_id": "evt_01",
			"event_type": "subscription.updated",
			"occurred_at": "2024-05-16T10:00:00.000000Z",
			"data": {
				"id": "sub_01",
				"status": "past_due",
				"customer_id": "ctm_01",
				"custom_data": {"account_id": %q},
				"items": [{"price": {"id": "pri_growth_m"}}]
			}
		}`, accountID))

		event, err := p.ParseWebhook(ctx, payload, sign(t, payload))
		require.NoError(t, err)
		assert.Equal(t, "evt_01", event.ID)
		assert.Equal(t, billing.EventSubscriptionUpdated, event.Type)
		assert.Equal(t, "subscription.updated", event.ProviderEvent)
		assert.Equal(t, accountID, event.AccountID)
		assert.Equal(t, "sub_01", event.SubscriptionID)
		assert.Equal(t, "ctm_01", event.CustomerID)
		assert.Equal(t, "past_due", event.Status)
		assert.Equal(t, "pri_growth_m", event.PriceID)
		assert.Equal(t, time.Date(2024, 5, 16, 10, 0, 0, 0, time.UTC), event.OccurredAt)
	})

	t.Run("recurring transaction", func(t *testing.T) {
		t.Parallel()
		payload := []byte(fmt.Sprintf(`{
			"event_id": "evt_02",
			"event_type": "transaction.completed",
			"occurred_at": "2024-05-16T10:00:00Z",
			"data": {
				"id": "txn_01",
				"subscription_id": "sub_01",
				"origin": "subscription_recurring",
				"status": "completed",
				"custom_data": {"account_id": %q},
				"items": [{"price_id": "pri_starter_m"}]
			}
		}`, accountID))

		event, err := p.ParseWebhook(ctx, payload, sign(t, payload))
		require.NoError(t, err)
		assert.Equal(t, billing.EventPaymentSucceeded, event.Type)
		assert.Equal(t, "sub_01", event.SubscriptionID)
		assert.Equal(t, "pri_starter_m", event.PriceID)
		assert.True(t, event.IsRenewal())
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{"event_type":"subscription.canceled","data":{}}`)
		signature := sign(t, []byte(`{"tampered":true}`))

		_, err := p.ParseWebhook(ctx, payload, signature)
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)

		_, err = p.ParseWebhook(ctx, payload, "")
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
	})

	t.Run("rejects malformed account ID", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{"event_type":"subscription.canceled","data":{"custom_data":{"account_id":"nope"}}}`)

		_, err := p.ParseWebhook(ctx, payload, sign(t, payload))
		assert.ErrorIs(t, err, billing.ErrInvalidWebhookPayload)
	})
}
