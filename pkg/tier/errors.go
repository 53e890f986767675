package tier

import "errors"

var (
	ErrTierNotFound          = errors.New("tier not found")
	ErrNoTiers               = errors.New("tier catalog is empty")
	ErrInvalidTier           = errors.New("invalid tier configuration")
	ErrDuplicateTierID       = errors.New("duplicate tier ID")
	ErrDuplicateTierLevel    = errors.New("duplicate tier level")
	ErrInvalidBillingPeriod  = errors.New("invalid billing period")
	ErrFailedToLoadTiers     = errors.New("failed to load tiers")
	ErrFailedToDecodeSeed    = errors.New("failed to decode tier seed file")
	ErrFailedToCacheTier     = errors.New("failed to cache tier")
	ErrFailedToPersistTier   = errors.New("failed to persist tier")
	ErrFailedToCreateIndexes = errors.New("failed to create tier indexes")
)
