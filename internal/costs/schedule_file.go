package costs

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// scheduleFile is the YAML layout of a cost schedule. Rates are strings so that
// values such as 0.0000325 are read without a float round trip.
//
//	brokerage_rate: "0.0003"
//	brokerage_cap: "20"
//	sell_tax_rate: "0.001"
//	tax_rate: "0.18"
//	regulatory_rate: "0.000001"
//	venues:
//	  NSE: "0.0000325"
//	  BSE: "0.0000375"
type scheduleFile struct {
	BrokerageRate  string            `yaml:"brokerage_rate"`
	BrokerageCap   string            `yaml:"brokerage_cap"`
	SellTaxRate    string            `yaml:"sell_tax_rate"`
	TaxRate        string            `yaml:"tax_rate"`
	RegulatoryRate string            `yaml:"regulatory_rate"`
	Venues         map[string]string `yaml:"venues"`
}

// LoadSchedule reads a YAML cost schedule. Fields missing from the file keep
// their DefaultSchedule value; a venues block replaces the default venues.
func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to read cost schedule: %w", err)
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes a YAML cost schedule on top of DefaultSchedule.
func ParseSchedule(data []byte) (Schedule, error) {
	var raw scheduleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Schedule{}, fmt.Errorf("failed to parse cost schedule: %w", err)
	}

	s := DefaultSchedule()
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"brokerage_rate", raw.BrokerageRate, &s.BrokerageRate},
		{"brokerage_cap", raw.BrokerageCap, &s.BrokerageCap},
		{"sell_tax_rate", raw.SellTaxRate, &s.SellTaxRate},
		{"tax_rate", raw.TaxRate, &s.TaxRate},
		{"regulatory_rate", raw.RegulatoryRate, &s.RegulatoryRate},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Schedule{}, fmt.Errorf("cost schedule: invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}

	if len(raw.Venues) > 0 {
		s.VenueRates = make(map[string]decimal.Decimal, len(raw.Venues))
		for venue, rate := range raw.Venues {
			v, err := decimal.NewFromString(rate)
			if err != nil {
				return Schedule{}, fmt.Errorf("cost schedule: invalid rate for venue %s: %w", venue, err)
			}
			s.VenueRates[venue] = v
		}
	}

	return s, s.Validate()
}
