package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/neexbeast/tripfinder/internal/destination"
)

const maxAlternates = 3

type rationaleFlags struct {
	fallbackFares bool
	liveForecast  bool
}

var conditionPhrases = map[destination.Condition]string{
	destination.ConditionClear:        "mostly clear skies",
	destination.ConditionClouds:       "mostly cloudy skies",
	destination.ConditionFog:          "frequent fog",
	destination.ConditionDrizzle:      "light drizzle",
	destination.ConditionRain:         "rain on most days",
	destination.ConditionSnow:         "snow on most days",
	destination.ConditionThunderstorm: "thunderstorms",
	destination.ConditionUnknown:      "mixed conditions",
}

func rationale(ranked []destination.Candidate, prefs destination.Preferences, flags rationaleFlags) string {
	if len(ranked) == 0 {
		return fmt.Sprintf(
			"No destinations from %s fit a budget of %s for a %s trip. Try a higher budget or different dates.",
			prefs.Origin, formatAmount(prefs.Budget), prefs.TravelStyle)
	}

	var b strings.Builder
	top := ranked[0]
	fmt.Fprintf(&b, "%s is the top pick for a %s trip at %s %s",
		nameOf(top), prefs.TravelStyle, formatAmount(top.Price), top.Currency)
	if prefs.Budget > 0 && top.Price <= prefs.Budget {
		savings := (prefs.Budget - top.Price) / prefs.Budget * 100
		fmt.Fprintf(&b, ", %.0f%% under your budget of %s", savings, formatAmount(prefs.Budget))
	}
	b.WriteString(". ")
	b.WriteString(forecastSummary(top))

	if alts := ranked[1:min(len(ranked), 1+maxAlternates)]; len(alts) > 0 {
		names := make([]string, len(alts))
		for i, c := range alts {
			names[i] = fmt.Sprintf("%s (%s %s)", nameOf(c), formatAmount(c.Price), c.Currency)
		}
		fmt.Fprintf(&b, " Also worth a look: %s.", strings.Join(names, ", "))
	}

	if flags.fallbackFares {
		b.WriteString(" Live fares were unavailable, so prices come from reference data and are indicative only.")
	}
	if !flags.liveForecast {
		if hasForecast(ranked) {
			b.WriteString(" Live forecasts were unavailable, so weather is estimated from seasonal patterns.")
		} else {
			b.WriteString(" No forecasts were available, so weather did not influence the ranking.")
		}
	}

	return b.String()
}

func nameOf(c destination.Candidate) string {
	if c.DestinationName == "" || c.DestinationName == c.DestinationCode {
		return c.DestinationCode
	}
	return fmt.Sprintf("%s (%s)", c.DestinationName, c.DestinationCode)
}

func forecastSummary(c destination.Candidate) string {
	avg, ok := c.AverageTemperature()
	if !ok {
		return "No forecast is available for the travel dates."
	}
	return fmt.Sprintf("Expect around %.0f°C with %s.", math.Round(avg), conditionPhrases[dominantCondition(c.Forecast)])
}

// dominantCondition is the most frequent condition; ties go to the earliest day.
func dominantCondition(days []destination.ForecastDay) destination.Condition {
	counts := make(map[destination.Condition]int, len(days))
	best, bestCount := destination.ConditionUnknown, 0
	for _, d := range days {
		counts[d.Condition.Main]++
	}
	for _, d := range days {
		if n := counts[d.Condition.Main]; n > bestCount {
			best, bestCount = d.Condition.Main, n
		}
	}
	if _, ok := conditionPhrases[best]; !ok {
		return destination.ConditionUnknown
	}
	return best
}

func hasForecast(cs []destination.Candidate) bool {
	for _, c := range cs {
		if len(c.Forecast) > 0 {
			return true
		}
	}
	return false
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
