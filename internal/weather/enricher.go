package weather

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neexbeast/tripfinder/internal/breaker"
	"github.com/neexbeast/tripfinder/internal/cache"
	"github.com/neexbeast/tripfinder/internal/destination"
)

// Stage sources reported in outcomes.
const (
	SourceCache     = "weather:cache"
	SourceProvider  = "weather:" + ProviderOpenMeteo
	SourceSynthetic = "weather:" + ProviderSynthetic
	SourceNone      = "weather:none"
)

// MaxForecastDays is the longest window the provider serves.
const MaxForecastDays = 16

// HorizonDays is how far ahead the provider forecasts, counting today. Days
// past the horizon are only ever synthetic.
const HorizonDays = 16

// locator is satisfied by *geocode.Resolver.
type locator interface {
	Resolve(ctx context.Context, code string) (destination.LocationRecord, error)
}

// forecaster is satisfied by *Client.
type forecaster interface {
	Forecast(ctx context.Context, coords destination.Coordinates, start, end time.Time) ([]destination.ForecastDay, error)
}

// Enricher returns forecasts for location codes, cache first, then the
// provider, then the synthetic generator when one is configured.
type Enricher struct {
	locator   locator
	provider  forecaster
	cache     *cache.LRU[destination.ForecastDay]
	synthetic *Synthetic
	breaker   *breaker.Breaker[[]destination.ForecastDay]
	now       func() time.Time
	log       *slog.Logger
}

// Option customizes an Enricher.
type Option func(*Enricher)

// WithClock overrides time.Now for the provider horizon.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) { e.now = now }
}

// NewEnricher constructs an Enricher. A nil synthetic disables the degraded
// path so provider failures produce an absent forecast.
func NewEnricher(loc locator, provider forecaster, c *cache.LRU[destination.ForecastDay], synthetic *Synthetic, cb breaker.Config, log *slog.Logger, opts ...Option) *Enricher {
	e := &Enricher{
		locator:   loc,
		provider:  provider,
		cache:     c,
		synthetic: synthetic,
		breaker:   breaker.New[[]destination.ForecastDay]("weather-provider", cb, log),
		now:       time.Now,
		log:       log,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Forecast returns the days [start, start+days-1] for code. It never fails:
// when nothing can be produced the outcome is Absent. Cached and provider
// forecasts stop at the provider horizon; a window starting past it goes
// straight to the synthetic generator.
func (e *Enricher) Forecast(ctx context.Context, code string, start time.Time, days int) destination.Outcome[[]destination.ForecastDay] {
	days = min(max(days, 1), MaxForecastDays)
	start = truncateDay(start)

	loc, err := e.locator.Resolve(ctx, code)
	if err != nil {
		e.log.Warn("no coordinates for forecast", "code", code, "err", err)
		return destination.Absent[[]destination.ForecastDay](SourceNone)
	}

	live := e.liveDays(start, days)
	if live < days {
		e.log.Debug("forecast window clipped to provider horizon", "code", loc.Code, "days", days, "live_days", live)
	}

	chain := []destination.Strategy[[]destination.ForecastDay]{
		{Name: SourceCache, Run: func(context.Context) ([]destination.ForecastDay, error) {
			if live == 0 {
				return nil, destination.ErrSkip
			}
			return e.fromCache(loc.Code, start, live)
		}},
		{Name: SourceProvider, Run: func(ctx context.Context) ([]destination.ForecastDay, error) {
			if live == 0 {
				return nil, destination.ErrSkip
			}
			return e.fromProvider(ctx, loc, start, live)
		}},
		{Name: SourceSynthetic, Degraded: true, Run: func(context.Context) ([]destination.ForecastDay, error) {
			if e.synthetic == nil {
				return nil, destination.ErrSkip
			}
			return roundAll(e.synthetic.Forecast(loc.Coordinates, start, days)), nil
		}},
	}

	out, err := destination.RunChain(ctx, chain, func(name string, err error) {
		e.log.Warn("forecast strategy failed", "code", loc.Code, "strategy", name, "err", err)
	})
	if err != nil {
		e.log.Error("unexpected fatal forecast error", "code", loc.Code, "err", err)
		return destination.Absent[[]destination.ForecastDay](SourceNone)
	}
	if !out.Present() {
		out.Source = SourceNone
	}
	return out
}

// Stats returns the forecast cache counters.
func (e *Enricher) Stats() cache.Stats {
	return e.cache.Stats()
}

// liveDays counts the days of the window on or before the last date the
// provider forecasts.
func (e *Enricher) liveDays(start time.Time, days int) int {
	last := truncateDay(e.now().UTC()).AddDate(0, 0, HorizonDays-1)
	if start.After(last) {
		return 0
	}
	return min(days, int(last.Sub(start).Hours()/24)+1)
}

// truncateDay keeps the calendar date of t as midnight UTC.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cacheKey(code, date string) string {
	return code + "|" + date
}

func (e *Enricher) fromCache(code string, start time.Time, days int) ([]destination.ForecastDay, error) {
	out := make([]destination.ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(destination.DateLayout)
		day, ok := e.cache.Get(cacheKey(code, date))
		if !ok {
			return nil, destination.ErrSkip
		}
		out = append(out, day)
	}
	return out, nil
}

func (e *Enricher) fromProvider(ctx context.Context, loc destination.LocationRecord, start time.Time, days int) ([]destination.ForecastDay, error) {
	end := start.AddDate(0, 0, days-1)
	raw, err := e.breaker.Execute(func() ([]destination.ForecastDay, error) {
		return e.provider.Forecast(ctx, loc.Coordinates, start, end)
	})
	if err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", loc.Code, err)
	}

	out := roundAll(raw)
	for _, d := range out {
		e.cache.Set(cacheKey(loc.Code, d.Date), d)
	}
	return out, nil
}

func roundAll(days []destination.ForecastDay) []destination.ForecastDay {
	out := make([]destination.ForecastDay, len(days))
	for i, d := range days {
		d.TempMin = math.Round(d.TempMin)
		d.TempMax = math.Round(d.TempMax)
		d.TempAvg = math.Round(d.TempAvg)
		d.FeelsLikeMin = math.Round(d.FeelsLikeMin)
		d.FeelsLikeMax = math.Round(d.FeelsLikeMax)
		out[i] = d
	}
	return out
}
