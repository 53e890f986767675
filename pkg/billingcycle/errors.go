package billingcycle

import "errors"

var ErrCurrencyMismatch = errors.New("tiers are priced in different currencies")
