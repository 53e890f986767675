package tier

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Catalog is the read-only tier lookup consumed by the accounting packages.
type Catalog interface {
	// GetTierByID returns ErrTierNotFound when no tier has the given ID.
	GetTierByID(ctx context.Context, id string) (Tier, error)
	// GetActiveTiers returns active tiers ordered by level.
	GetActiveTiers(ctx context.Context) ([]Tier, error)
}

// Validate checks catalog-wide invariants: every tier is well formed, IDs and
// levels are unique, and a higher level never costs less or grants smaller
// quotas than a lower one.
func Validate(tiers []Tier) error {
	if len(tiers) == 0 {
		return ErrNoTiers
	}

	ids := make(map[string]struct{}, len(tiers))
	levels := make(map[int]string, len(tiers))
	for _, t := range tiers {
		if err := t.validate(); err != nil {
			return err
		}
		if _, ok := ids[t.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTierID, t.ID)
		}
		ids[t.ID] = struct{}{}
		if other, ok := levels[t.Level]; ok {
			return fmt.Errorf("%w: %s and %s share level %d", ErrDuplicateTierLevel, other, t.ID, t.Level)
		}
		levels[t.Level] = t.ID
	}

	ordered := SortByLevel(tiers)
	for i := 1; i < len(ordered); i++ {
		lo, hi := ordered[i-1], ordered[i]
		if hi.MonthlyPrice.LessThan(lo.MonthlyPrice) {
			return fmt.Errorf("%w: tier %s (level %d) is cheaper than %s (level %d)",
				ErrInvalidTier, hi.ID, hi.Level, lo.ID, lo.Level)
		}
		if hi.MonthlyDesignQuota < lo.MonthlyDesignQuota || hi.ConcurrentDesignQuota < lo.ConcurrentDesignQuota {
			return fmt.Errorf("%w: tier %s (level %d) has smaller quotas than %s (level %d)",
				ErrInvalidTier, hi.ID, hi.Level, lo.ID, lo.Level)
		}
	}
	return nil
}

// SortByLevel returns a copy of tiers ordered by ascending level.
func SortByLevel(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		out[i] = t.Clone()
	}
	slices.SortFunc(out, func(a, b Tier) int { return cmp.Compare(a.Level, b.Level) })
	return out
}

type inMemCatalog struct {
	mu    sync.RWMutex
	tiers map[string]Tier
}

// NewInMemCatalog returns a Catalog backed by a validated, deep-copied set of tiers.
func NewInMemCatalog(tiers ...Tier) (Catalog, error) {
	if err := Validate(tiers); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	m := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		m[t.ID] = t.Clone()
	}
	return &inMemCatalog{tiers: m}, nil
}

// MustInMemCatalog is NewInMemCatalog that panics on invalid input.
func MustInMemCatalog(tiers ...Tier) Catalog {
	c, err := NewInMemCatalog(tiers...)
	if err != nil {
		panic(fmt.Sprintf("tier: %v", err))
	}
	return c
}

func (c *inMemCatalog) GetTierByID(_ context.Context, id string) (Tier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tiers[id]
	if !ok {
		return Tier{}, fmt.Errorf("%w: %s", ErrTierNotFound, id)
	}
	return t.Clone(), nil
}

func (c *inMemCatalog) GetActiveTiers(_ context.Context) ([]Tier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		if t.Active {
			active = append(active, t)
		}
	}
	return SortByLevel(active), nil
}
