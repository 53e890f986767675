package billing

import (
	"fmt"
	"strings"

	"github.com/canvascue/accounting/pkg/tier"
)

// Plan is a tier billed on a given period.
type Plan struct {
	TierID string
	Period tier.BillingPeriod
}

func (p Plan) key() string { return p.TierID + "." + string(p.Period) }

// Prices maps plans to provider price IDs in both directions.
type Prices struct {
	byPlan  map[string]string
	byPrice map[string]Plan
}

// ParsePrices builds Prices from "<tier>.<period>" keys, the shape produced
// by the PADDLE_PRICES environment variable. The period follows the last dot,
// so tier IDs may contain dots.
func ParsePrices(m map[string]string) (*Prices, error) {
	p := &Prices{
		byPlan:  make(map[string]string, len(m)),
		byPrice: make(map[string]Plan, len(m)),
	}
	for key, priceID := range m {
		i := strings.LastIndex(key, ".")
		if i <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPriceKey, key)
		}
		tierID, period := key[:i], key[i+1:]
		bp, err := tier.ParseBillingPeriod(period)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPriceKey, key, err)
		}
		if priceID == "" {
			return nil, fmt.Errorf("%w for %q", ErrMissingPriceID, key)
		}
		plan := Plan{TierID: tierID, Period: bp}
		p.byPlan[plan.key()] = priceID
		p.byPrice[priceID] = plan
	}
	return p, nil
}

// PriceID returns the provider price for a plan.
func (p *Prices) PriceID(plan Plan) (string, error) {
	id, ok := p.byPlan[plan.key()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPriceNotConfigured, plan.key())
	}
	return id, nil
}

// Plan resolves a provider price back to a plan.
func (p *Prices) Plan(priceID string) (Plan, bool) {
	plan, ok := p.byPrice[priceID]
	return plan, ok
}
