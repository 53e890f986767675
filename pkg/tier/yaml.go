package tier

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a tier seed file:
//
//	tiers:
//	  - id: starter
//	    name: Starter
//	    level: 1
//	    monthly_price: "399.00"
//	    quarterly_price: "1077.00"
//	    currency: USD
//	    monthly_design_quota: 10
//	    concurrent_design_quota: 1
//	    features: [source_files]
//	    active: true
type seedFile struct {
	Tiers []seedTier `yaml:"tiers"`
}

type seedTier struct {
	ID                    string    `yaml:"id"`
	Name                  string    `yaml:"name"`
	Level                 int       `yaml:"level"`
	MonthlyPrice          string    `yaml:"monthly_price"`
	QuarterlyPrice        string    `yaml:"quarterly_price"`
	Currency              string    `yaml:"currency"`
	MonthlyDesignQuota    int64     `yaml:"monthly_design_quota"`
	ConcurrentDesignQuota int64     `yaml:"concurrent_design_quota"`
	Features              []Feature `yaml:"features"`
	Active                *bool     `yaml:"active"`
}

// LoadYAML decodes and validates a tier seed document.
// Tiers without an explicit active flag are treated as active.
func LoadYAML(r io.Reader) ([]Tier, error) {
	var doc seedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToDecodeSeed, err)
	}

	tiers := make([]Tier, 0, len(doc.Tiers))
	for i, st := range doc.Tiers {
		monthly, err := parsePrice(st.MonthlyPrice)
		if err != nil {
			return nil, errors.Join(ErrFailedToDecodeSeed, fmt.Errorf("tiers[%d].monthly_price: %w", i, err))
		}
		quarterly, err := parsePrice(st.QuarterlyPrice)
		if err != nil {
			return nil, errors.Join(ErrFailedToDecodeSeed, fmt.Errorf("tiers[%d].quarterly_price: %w", i, err))
		}

		currency := st.Currency
		if currency == "" {
			currency = "USD"
		}

		tiers = append(tiers, Tier{
			ID:                    st.ID,
			Name:                  st.Name,
			Level:                 st.Level,
			MonthlyPrice:          monthly,
			QuarterlyPrice:        quarterly,
			Currency:              currency,
			MonthlyDesignQuota:    st.MonthlyDesignQuota,
			ConcurrentDesignQuota: st.ConcurrentDesignQuota,
			Features:              st.Features,
			Active:                st.Active == nil || *st.Active,
		})
	}

	if err := Validate(tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// LoadYAMLFile opens path and decodes it with LoadYAML.
func LoadYAMLFile(path string) ([]Tier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToDecodeSeed, err)
	}
	defer f.Close()

	return LoadYAML(f)
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
