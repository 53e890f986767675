package billing

// NewFromConfig builds the Paddle provider described by cfg, wrapped in a
// ResilientProvider that uses cfg.Timeout per call, along with the price
// table from cfg.Prices. opts are applied after the timeout.
func NewFromConfig(cfg PaddleConfig, opts ...ResilientOption) (*ResilientProvider, *Prices, error) {
	prices, err := ParsePrices(cfg.Prices)
	if err != nil {
		return nil, nil, err
	}
	paddle, err := NewPaddleProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]ResilientOption{WithCallTimeout(cfg.Timeout)}, opts...)
	return NewResilientProvider(paddle, opts...), prices, nil
}
