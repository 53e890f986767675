package tier

import "slices"

// Direction classifies a tier change by level.
type Direction string

const (
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
	DirectionSame      Direction = "same"
)

// Change describes the difference between two tiers.
// Used to validate downgrades and communicate changes to users.
type Change struct {
	Direction            Direction
	GainedFeatures       []Feature
	LostFeatures         []Feature
	MonthlyQuotaDelta    int64
	ConcurrentQuotaDelta int64
}

// Compare returns the differences between the current and target tiers.
func Compare(current, target Tier) Change {
	c := Change{
		Direction:            DirectionSame,
		GainedFeatures:       make([]Feature, 0),
		LostFeatures:         make([]Feature, 0),
		MonthlyQuotaDelta:    target.MonthlyDesignQuota - current.MonthlyDesignQuota,
		ConcurrentQuotaDelta: target.ConcurrentDesignQuota - current.ConcurrentDesignQuota,
	}

	switch {
	case target.Level > current.Level:
		c.Direction = DirectionUpgrade
	case target.Level < current.Level:
		c.Direction = DirectionDowngrade
	}

	for _, f := range target.Features {
		if !slices.Contains(current.Features, f) {
			c.GainedFeatures = append(c.GainedFeatures, f)
		}
	}
	for _, f := range current.Features {
		if !slices.Contains(target.Features, f) {
			c.LostFeatures = append(c.LostFeatures, f)
		}
	}

	return c
}

// ReducesQuotas reports whether the target tier lowers any quota.
func (c Change) ReducesQuotas() bool {
	return c.MonthlyQuotaDelta < 0 || c.ConcurrentQuotaDelta < 0
}
