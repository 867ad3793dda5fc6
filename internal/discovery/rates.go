package discovery

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
)

// ReferenceCurrency is the currency reference fares are stored in.
const ReferenceCurrency = "EUR"

// referenceRates are indicative units of each currency per ReferenceCurrency unit.
var referenceRates = map[string]float64{
	ReferenceCurrency: 1,
	"USD": 1.08,
	"GBP": 0.85,
	"CHF": 0.95,
	"PLN": 4.30,
	"CZK": 25.0,
	"HUF": 395.0,
	"SEK": 11.5,
	"NOK": 11.7,
	"DKK": 7.46,
	"CAD": 1.47,
	"AUD": 1.65,
	"JPY": 160.0,
}

// referenceRate returns units of code per reference fare unit. Unknown or
// malformed codes are rejected rather than labelled with a wrong currency.
func referenceRate(code string) (float64, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("currency %q: %w", code, err)
	}
	rate, ok := referenceRates[unit.String()]
	if !ok {
		return 0, fmt.Errorf("no reference rate for %s", unit)
	}
	return rate, nil
}

// convertFare prices a reference fare in the target currency, rounded to whole units.
func convertFare(fare, rate float64) float64 {
	return math.Round(fare * rate)
}
