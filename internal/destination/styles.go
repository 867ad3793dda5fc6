package destination

import "slices"

// StyleDestinations lists, per travel style, the location codes that suit it.
// Both metropolitan city codes and main airport codes are listed where they differ.
var StyleDestinations = map[TravelStyle][]string{
	StyleAdventure: {
		"KEF", "REK", "INN", "GVA", "SPU", "FNC", "ZQN", "CPT", "DPS", "TFS",
		"DEN", "YVR", "ANC", "KTM",
	},
	StyleRelaxation: {
		"PMI", "HER", "LCA", "FAO", "TFS", "MLA", "MLE", "DPS", "MIA", "IBZ",
		"ATH", "NCE", "CUN", "HNL",
	},
	StyleCulture: {
		"BCN", "PRG", "VIE", "FCO", "ROM", "ATH", "IST", "LIS", "KRK", "CDG",
		"PAR", "BER", "AMS", "BUD", "MLA", "FLR", "LON", "LHR", "MAD", "KYO",
	},
	StyleParty: {
		"IBZ", "BER", "AMS", "BCN", "BUD", "MIA", "LIS", "SPU", "JMK", "LAS",
		"CUN", "PRG",
	},
	StyleNature: {
		"KEF", "REK", "INN", "GVA", "OSL", "TFS", "SPU", "FNC", "ZQN", "CPT",
		"YVR", "ANC", "KTM",
	},
}

// MatchesStyle reports whether code is listed for style.
func MatchesStyle(code string, style TravelStyle) bool {
	return slices.Contains(StyleDestinations[style], code)
}

// StylesFor returns every style code is listed for, in a fixed order.
func StylesFor(code string) []TravelStyle {
	var out []TravelStyle
	for _, s := range []TravelStyle{StyleAdventure, StyleRelaxation, StyleCulture, StyleParty, StyleNature} {
		if MatchesStyle(code, s) {
			out = append(out, s)
		}
	}
	return out
}
