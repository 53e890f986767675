package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/tier"
)

// accountDocument is the stored form of account.Account. UUIDs are stored as
// their string form so documents stay readable in the shell.
type accountDocument struct {
	ID                     string          `bson:"_id"`
	UserID                 string          `bson:"user_id"`
	TierID                 string          `bson:"tier_id"`
	BillingPeriod          string          `bson:"billing_period"`
	Status                 string          `bson:"status"`
	HoldsActiveSlot        bool            `bson:"holds_active_slot"`
	CurrentPeriodStart     time.Time       `bson:"current_period_start"`
	CurrentPeriodEnd       time.Time       `bson:"current_period_end"`
	NextBillingAt          time.Time       `bson:"next_billing_at"`
	TrialEndsAt            *time.Time      `bson:"trial_ends_at,omitempty"`
	PausedAt               *time.Time      `bson:"paused_at,omitempty"`
	ResumeAt               *time.Time      `bson:"resume_at,omitempty"`
	Usage                  usageDocument   `bson:"usage"`
	Cancellation           *cancelDocument `bson:"cancellation,omitempty"`
	ProviderSubscriptionID string          `bson:"provider_subscription_id,omitempty"`
	ProviderCustomerID     string          `bson:"provider_customer_id,omitempty"`
	CreatedAt              time.Time       `bson:"created_at"`
	UpdatedAt              time.Time       `bson:"updated_at"`
	Version                int64           `bson:"version"`
}

type usageDocument struct {
	DesignsUsedThisMonth int64     `bson:"designs_used_this_month"`
	ActiveDesignRequests int64     `bson:"active_design_requests"`
	LastResetAt          time.Time `bson:"last_reset_at"`
}

type cancelDocument struct {
	At     time.Time `bson:"at"`
	Reason string    `bson:"reason"`
}

func toDocument(a *account.Account) accountDocument {
	doc := accountDocument{
		ID:                     a.ID.String(),
		UserID:                 a.UserID.String(),
		TierID:                 a.TierID,
		BillingPeriod:          string(a.BillingPeriod),
		Status:                 string(a.Status),
		HoldsActiveSlot:        a.Status.HoldsActiveSlot(),
		CurrentPeriodStart:     a.CurrentPeriodStart,
		CurrentPeriodEnd:       a.CurrentPeriodEnd,
		NextBillingAt:          a.NextBillingAt,
		TrialEndsAt:            a.TrialEndsAt,
		PausedAt:               a.PausedAt,
		ResumeAt:               a.ResumeAt,
		ProviderSubscriptionID: a.ProviderSubscriptionID,
		ProviderCustomerID:     a.ProviderCustomerID,
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
		Version:                a.Version,
		Usage: usageDocument{
			DesignsUsedThisMonth: a.Usage.DesignsUsedThisMonth,
			ActiveDesignRequests: a.Usage.ActiveDesignRequests,
			LastResetAt:          a.Usage.LastResetAt,
		},
	}
	if a.Cancellation != nil {
		doc.Cancellation = &cancelDocument{At: a.Cancellation.At, Reason: a.Cancellation.Reason}
	}
	return doc
}

func (d accountDocument) toAccount() (*account.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("account id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("account %s user id: %w", d.ID, err)
	}
	a := &account.Account{
		ID:                     id,
		UserID:                 userID,
		TierID:                 d.TierID,
		BillingPeriod:          tier.BillingPeriod(d.BillingPeriod),
		Status:                 account.Status(d.Status),
		CurrentPeriodStart:     d.CurrentPeriodStart.UTC(),
		CurrentPeriodEnd:       d.CurrentPeriodEnd.UTC(),
		NextBillingAt:          d.NextBillingAt.UTC(),
		TrialEndsAt:            utcPtr(d.TrialEndsAt),
		PausedAt:               utcPtr(d.PausedAt),
		ResumeAt:               utcPtr(d.ResumeAt),
		ProviderSubscriptionID: d.ProviderSubscriptionID,
		ProviderCustomerID:     d.ProviderCustomerID,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
		Version:                d.Version,
		Usage: account.Usage{
			DesignsUsedThisMonth: d.Usage.DesignsUsedThisMonth,
			ActiveDesignRequests: d.Usage.ActiveDesignRequests,
			LastResetAt:          d.Usage.LastResetAt.UTC(),
		},
	}
	if d.Cancellation != nil {
		a.Cancellation = &account.Cancellation{At: d.Cancellation.At.UTC(), Reason: d.Cancellation.Reason}
	}
	return a, nil
}

// lifecycleFields is the $set payload for Save. Usage, CreatedAt and Version
// are not part of it.
func lifecycleFields(d accountDocument) bson.M {
	return bson.M{
		"tier_id":                  d.TierID,
		"billing_period":           d.BillingPeriod,
		"status":                   d.Status,
		"holds_active_slot":        d.HoldsActiveSlot,
		"current_period_start":     d.CurrentPeriodStart,
		"current_period_end":       d.CurrentPeriodEnd,
		"next_billing_at":          d.NextBillingAt,
		"trial_ends_at":            d.TrialEndsAt,
		"paused_at":                d.PausedAt,
		"resume_at":                d.ResumeAt,
		"cancellation":             d.Cancellation,
		"provider_subscription_id": d.ProviderSubscriptionID,
		"provider_customer_id":     d.ProviderCustomerID,
		"updated_at":               d.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
