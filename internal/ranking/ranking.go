// Package ranking scores destination candidates against a traveler's preferences.
package ranking

import (
	"sort"

	"github.com/neexbeast/tripfinder/internal/destination"
)

// MaxResults is the number of candidates Rank keeps.
const MaxResults = 10

// Points awarded per matching term.
const (
	StylePoints      = 10
	WeatherPoints    = 5
	CheapPoints      = 5
	AffordablePoints = 3
	PreferredPoints  = 15
	DirectPoints     = 3

	cheapShare      = 0.5
	affordableShare = 0.8
)

// Breakdown is a candidate's score split by term.
type Breakdown struct {
	Style     int `json:"style"`
	Weather   int `json:"weather"`
	Budget    int `json:"budget"`
	Preferred int `json:"preferred"`
	Direct    int `json:"direct"`
}

// Total sums the terms.
func (b Breakdown) Total() int {
	return b.Style + b.Weather + b.Budget + b.Preferred + b.Direct
}

// Score computes every term for c. A candidate without a forecast gets no
// weather points.
func Score(c destination.Candidate, prefs destination.Preferences) Breakdown {
	var b Breakdown

	if destination.MatchesStyle(c.DestinationCode, prefs.TravelStyle) {
		b.Style = StylePoints
	}

	if avg, ok := c.AverageTemperature(); ok && prefs.WeatherPreference.Matches(avg) {
		b.Weather = WeatherPoints
	}

	switch {
	case prefs.Budget <= 0:
	case c.Price < cheapShare*prefs.Budget:
		b.Budget = CheapPoints
	case c.Price < affordableShare*prefs.Budget:
		b.Budget = AffordablePoints
	}

	if prefs.Prefers(c.DestinationName) {
		b.Preferred = PreferredPoints
	}

	if c.Direct() {
		b.Direct = DirectPoints
	}

	return b
}

// Rank scores every candidate, sorts by score descending keeping the input
// order among equal scores, and returns at most MaxResults. The input slice is
// left untouched.
func Rank(candidates []destination.Candidate, prefs destination.Preferences) []destination.Candidate {
	scored := make([]destination.Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = Score(c, prefs).Total()
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > MaxResults {
		scored = scored[:MaxResults]
	}
	return scored
}
