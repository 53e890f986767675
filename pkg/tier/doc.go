// Package tier defines the CanvasCue subscription tier catalog: plan prices,
// monthly and concurrent design quotas, and feature flags.
//
// Tiers are read-only to the accounting packages. They are created by
// administrative seeding (see LoadYAML and MongoCatalog.Seed) and looked up
// through the Catalog interface.
//
// # Sources
//
//   - NewInMemCatalog: validated, deep-copied tiers held in memory.
//   - MongoCatalog: the seeded "tiers" collection.
//   - CachedCatalog: a Redis read-through cache in front of any Catalog.
//
// # Usage
//
//	tiers, err := tier.LoadYAMLFile("tiers.yaml")
//	if err != nil {
//		return err
//	}
//	catalog, err := tier.NewInMemCatalog(tiers...)
//	if err != nil {
//		return err
//	}
//
//	starter, err := catalog.GetTierByID(ctx, "starter")
//	if errors.Is(err, tier.ErrTierNotFound) {
//		// unknown tier
//	}
//
// Every catalog enforces the same invariants through Validate: tier levels
// start at 1 and are unique, and a higher level never costs less or grants
// smaller quotas than a lower one.
//
// # Billing periods
//
// BillingPeriod.Advance moves a timestamp by one or three calendar months
// using time.AddDate, so month-end dates overflow into the following month
// (2024-01-31 + 1 month = 2024-03-02). BillingPeriod.ProrationDays is a fixed
// 30 or 90 regardless of the calendar.
package tier
