// Package billingcycle projects billing dates, overdue state and proration
// amounts for subscription accounts. Nothing here writes; callers act on the
// answers (see package sweeper).
package billingcycle
