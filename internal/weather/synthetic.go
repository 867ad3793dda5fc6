package weather

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/neexbeast/tripfinder/internal/destination"
)

// ProviderSynthetic labels generated forecasts.
const ProviderSynthetic = "synthetic"

// syntheticCodes are drawn from when generating a day, weighted towards fair weather.
var syntheticCodes = []int{0, 0, 1, 1, 2, 2, 3, 3, 45, 51, 61, 63, 80, 95}

// Synthetic generates plausible forecasts from latitude and season alone.
// The same coordinates and date always produce the same day.
type Synthetic struct{}

// NewSynthetic constructs a Synthetic generator.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Forecast returns one unrounded day per date in [start, start+days-1].
func (s *Synthetic) Forecast(coords destination.Coordinates, start time.Time, days int) []destination.ForecastDay {
	out := make([]destination.ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, s.day(coords, start.AddDate(0, 0, i)))
	}
	return out
}

func (s *Synthetic) day(coords destination.Coordinates, date time.Time) destination.ForecastDay {
	latKey := uint64(int64(math.Round(coords.Latitude * 1000)))
	dayKey := uint64(date.Year())*1000 + uint64(date.YearDay())
	rng := rand.New(rand.NewPCG(latKey, dayKey))

	// Warmest around late July in the north, late January in the south.
	season := math.Cos(2 * math.Pi * float64(date.YearDay()-200) / 365)
	if coords.Latitude < 0 {
		season = -season
	}
	absLat := math.Abs(coords.Latitude)
	base := 28 - 0.45*absLat + season*(absLat/6)
	spread := 4 + rng.Float64()*6

	avg := base + (rng.Float64()*6 - 3)
	tmin := avg - spread/2
	tmax := avg + spread/2

	code := syntheticCodes[rng.IntN(len(syntheticCodes))]
	if avg < 0 && code >= 51 && code < 95 {
		code = 73
	}
	cond := Classify(code)

	var precip destination.Precipitation
	switch cond.Main {
	case destination.ConditionDrizzle, destination.ConditionRain, destination.ConditionThunderstorm:
		precip.Rain = 1 + rng.Float64()*9
		precip.Total = precip.Rain
		precip.Hours = 1 + float64(rng.IntN(8))
		precip.Probability = 60 + float64(rng.IntN(40))
	case destination.ConditionSnow:
		precip.Snowfall = 1 + rng.Float64()*5
		precip.Total = precip.Snowfall * 0.7
		precip.Hours = 1 + float64(rng.IntN(8))
		precip.Probability = 60 + float64(rng.IntN(40))
	default:
		precip.Probability = float64(rng.IntN(30))
	}

	daylight := 12*3600 + season*math.Min(absLat, 66)/66*4*3600

	return destination.ForecastDay{
		Date:          date.Format(destination.DateLayout),
		TempMin:       tmin,
		TempMax:       tmax,
		TempAvg:       avg,
		FeelsLikeMin:  tmin - rng.Float64()*2,
		FeelsLikeMax:  tmax + rng.Float64()*2,
		Condition:     cond,
		Precipitation: precip,
		Wind: destination.Wind{
			Speed:     5 + rng.Float64()*25,
			Gusts:     15 + rng.Float64()*35,
			Direction: float64(rng.IntN(360)),
		},
		UVIndex:         math.Max(0, math.Round((11-absLat/9+season*2)*10)/10),
		DaylightSeconds: daylight,
		SunshineSeconds: daylight * (0.3 + rng.Float64()*0.6),
		Provider:        ProviderSynthetic,
	}
}
