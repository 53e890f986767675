package billing

import (
	"context"
	"errors"
	"fmt"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// updateSubscriptionPrice replaces the subscription's items with the new
// price, prorated immediately.
func (p *PaddleProvider) updateSubscriptionPrice(ctx context.Context, req SubscriptionRequest) (*SubscriptionResult, error) {
	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	sub, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       req.SubscriptionID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(paddle.ProrationBillingModeProratedImmediately),
	})
	if err != nil {
		return nil, errors.Join(ErrProviderError, fmt.Errorf("failed to update paddle subscription: %w", err))
	}

	return &SubscriptionResult{SubscriptionID: sub.ID}, nil
}
