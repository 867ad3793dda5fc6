// Package search runs a destination search end to end: discovery, geocoding,
// concurrent weather enrichment, ranking and the rationale.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/discovery"
	"github.com/neexbeast/tripfinder/internal/metrics"
	"github.com/neexbeast/tripfinder/internal/ranking"
	"github.com/neexbeast/tripfinder/internal/validation"
	"github.com/neexbeast/tripfinder/internal/weather"
)

// Stage labels that are not owned by a client package.
const (
	StageGeocode = "geocode:batch"
	StageRanking = "ranking"
)

// DefaultTimeout bounds a whole search.
const DefaultTimeout = 20 * time.Second

// MaxTripDays is the longest trip discovery accepts.
const MaxTripDays = 15

// discoverer is satisfied by *discovery.Service.
type discoverer interface {
	Discover(ctx context.Context, q discovery.Query) (destination.Outcome[[]destination.Candidate], error)
}

// batchResolver is satisfied by *geocode.Resolver.
type batchResolver interface {
	ResolveBatch(ctx context.Context, codes []string) map[string]destination.LocationRecord
}

// forecaster is satisfied by *weather.Enricher.
type forecaster interface {
	Forecast(ctx context.Context, code string, start time.Time, days int) destination.Outcome[[]destination.ForecastDay]
}

// Config tunes the orchestrator. Zero values take the defaults.
type Config struct {
	Timeout time.Duration
	// MaxConcurrency caps concurrent enrichment tasks; zero means one per candidate.
	MaxConcurrency int
	// NonStop asks discovery for direct routings only.
	NonStop bool
}

// Response is the result of one search.
type Response struct {
	Recommendations []destination.Candidate `json:"recommendations"`
	Rationale       string                  `json:"rationale"`
	ExecutionTimeMs int64                   `json:"execution_time_ms"`
	StagesUsed      []string                `json:"stages_used"`
}

// Orchestrator sequences the search stages.
type Orchestrator struct {
	discovery discoverer
	geocoder  batchResolver
	weather   forecaster
	cfg       Config
	now       func() time.Time
	log       *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator constructs an Orchestrator from its collaborators.
func NewOrchestrator(d discoverer, g batchResolver, w forecaster, cfg Config, log *slog.Logger, opts ...Option) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	o := &Orchestrator{
		discovery: d,
		geocoder:  g,
		weather:   w,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search returns ranked recommendations for prefs. Only ErrValidation and
// ErrAuth errors are returned; every other failure degrades the response.
func (o *Orchestrator) Search(ctx context.Context, prefs destination.Preferences) (*Response, error) {
	start := o.now()

	days, err := tripDays(prefs)
	if err != nil {
		return nil, err
	}
	prefs.Origin = strings.ToUpper(strings.TrimSpace(prefs.Origin))

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var stages []string
	addStage := func(stage, source string) {
		metrics.StageOutcomes.WithLabelValues(stage, source).Inc()
		if !slices.Contains(stages, source) {
			stages = append(stages, source)
		}
	}

	found, err := o.discovery.Discover(ctx, discovery.Query{
		Origin:        prefs.Origin,
		MaxPrice:      prefs.Budget,
		Days:          days,
		DepartureDate: prefs.DepartureDate,
		NonStop:       o.cfg.NonStop,
		Style:         prefs.TravelStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering destinations: %w", err)
	}
	addStage("discovery", found.Source)
	candidates := found.Value

	var located map[string]destination.LocationRecord
	if len(candidates) > 0 {
		codes := make([]string, len(candidates))
		for i, c := range candidates {
			codes[i] = c.DestinationCode
		}
		located = o.geocoder.ResolveBatch(ctx, codes)
		o.log.Debug("geocoded candidates", "requested", len(codes), "resolved", len(located))
		addStage("geocode", StageGeocode)
	}

	enriched, sources, liveForecast := o.enrich(ctx, candidates, located, days)
	for _, src := range sources {
		addStage("weather", src)
	}

	ranked := ranking.Rank(enriched, prefs)
	addStage("ranking", StageRanking)

	resp := &Response{
		Recommendations: ranked,
		Rationale: rationale(ranked, prefs, rationaleFlags{
			fallbackFares: found.Status != destination.StatusOK,
			liveForecast:  liveForecast,
		}),
		StagesUsed: stages,
	}
	elapsed := o.now().Sub(start)
	resp.ExecutionTimeMs = elapsed.Milliseconds()
	metrics.SearchDuration.Observe(elapsed.Seconds())

	o.log.Info("search completed",
		"origin", prefs.Origin,
		"candidates", len(candidates),
		"recommendations", len(ranked),
		"stages", stages,
		"elapsed_ms", resp.ExecutionTimeMs,
	)
	return resp, nil
}

// enrich fetches a forecast for every candidate concurrently. Each task owns
// one slot, so one failure never affects another candidate. Candidates whose
// code is missing from located are left without a forecast and never reach
// the forecaster. It returns the enriched candidates in input order, the
// forecast source of each, and whether any candidate got a live forecast.
func (o *Orchestrator) enrich(ctx context.Context, candidates []destination.Candidate, located map[string]destination.LocationRecord, days int) ([]destination.Candidate, []string, bool) {
	out := make([]destination.Candidate, len(candidates))
	outcomes := make([]destination.Outcome[[]destination.ForecastDay], len(candidates))
	copy(out, candidates)

	var g errgroup.Group
	limit := o.cfg.MaxConcurrency
	if limit <= 0 {
		limit = len(candidates)
	}
	if limit > 0 {
		g.SetLimit(limit)
	}

	fallbackStart := o.now().UTC()
	for i, c := range candidates {
		g.Go(func() (err error) {
			outcomes[i] = destination.Absent[[]destination.ForecastDay](weather.SourceNone)
			defer func() {
				if r := recover(); r != nil {
					o.log.Error("forecast enrichment panicked", "code", c.DestinationCode, "recover", r)
					err = fmt.Errorf("forecast for %s panicked: %v", c.DestinationCode, r)
				}
			}()

			if _, ok := located[strings.ToUpper(strings.TrimSpace(c.DestinationCode))]; !ok {
				o.log.Debug("skipping forecast for unresolved destination", "code", c.DestinationCode)
				return nil
			}

			begin, perr := time.Parse(destination.DateLayout, c.DepartureDate)
			if perr != nil {
				begin = fallbackStart
			}
			res := o.weather.Forecast(ctx, c.DestinationCode, begin, days)
			outcomes[i] = res
			if res.Present() {
				out[i] = c.WithForecast(res.Value)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.log.Warn("enrichment finished with failures", "err", err)
	}

	sources := make([]string, 0, len(outcomes))
	live := false
	for _, res := range outcomes {
		sources = append(sources, res.Source)
		if res.Status == destination.StatusOK {
			live = true
		}
	}
	return out, sources, live
}

// tripDays validates prefs and returns the trip length: the days between the
// two dates when both are given, else the style default.
func tripDays(prefs destination.Preferences) (int, error) {
	if err := validation.Struct(prefs); err != nil {
		return 0, err
	}
	if prefs.DepartureDate == nil || prefs.ReturnDate == nil {
		if prefs.ReturnDate != nil {
			return 0, destination.Validationf("return_date requires departure_date")
		}
		return prefs.TravelStyle.DefaultTripDays(), nil
	}

	if !prefs.ReturnDate.After(*prefs.DepartureDate) {
		return 0, destination.Validationf("return_date must be after departure_date")
	}
	days := int(prefs.ReturnDate.Sub(*prefs.DepartureDate).Hours() / 24)
	if days < 1 {
		days = 1
	}
	if days > MaxTripDays {
		return 0, destination.Validationf("trip of %d days exceeds the %d day maximum", days, MaxTripDays)
	}
	return days, nil
}
