// Package geocode resolves three-letter location codes to coordinates.
package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/neexbeast/tripfinder/internal/cache"
	"github.com/neexbeast/tripfinder/internal/destination"
)

const locationsPath = "/v1/reference-data/locations"

// StaticLocationTTL bounds how long a static fallback record stays in memory,
// so live coordinates replace it soon after the upstream recovers.
const StaticLocationTTL = 10 * time.Minute

// DefaultRequestInterval spaces successive network lookups.
const DefaultRequestInterval = 100 * time.Millisecond

// locationSearcher is satisfied by *amadeus.Client.
type locationSearcher interface {
	Get(ctx context.Context, path string, query url.Values, dst any) error
}

// recordStore is satisfied by *cache.RedisStore[destination.LocationRecord].
type recordStore interface {
	Get(ctx context.Context, key string) (*destination.LocationRecord, error)
	Set(ctx context.Context, key string, v *destination.LocationRecord) error
}

// Resolver maps location codes to LocationRecords, cache first.
type Resolver struct {
	api     locationSearcher
	memory  *cache.LRU[destination.LocationRecord]
	shared  recordStore
	static  map[string]destination.LocationRecord
	limiter *rate.Limiter
	log     *slog.Logger

	group   singleflight.Group
	lookups atomic.Int64
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithSharedStore adds a second cache tier consulted after the in-memory one.
func WithSharedStore(s recordStore) Option {
	return func(r *Resolver) { r.shared = s }
}

// WithStaticLocations supplies records used when the network lookup fails.
// They are kept in memory only and never written to the shared store.
func WithStaticLocations(recs map[string]destination.LocationRecord) Option {
	return func(r *Resolver) { r.static = recs }
}

// WithRequestInterval sets the minimum spacing between network lookups. Zero disables it.
func WithRequestInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewResolver constructs a Resolver backed by the given memory cache.
func NewResolver(api locationSearcher, memory *cache.LRU[destination.LocationRecord], log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		api:     api,
		memory:  memory,
		limiter: rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
		log:     log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the record for code. Invalid codes fail with ErrValidation
// before any lookup; unknown codes with ErrNotFound; records without usable
// coordinates with ErrAmbiguous.
func (r *Resolver) Resolve(ctx context.Context, code string) (destination.LocationRecord, error) {
	code, err := destination.NormalizeCode(code)
	if err != nil {
		return destination.LocationRecord{}, err
	}

	if rec, ok := r.memory.Get(code); ok {
		return rec, nil
	}

	v, err, _ := r.group.Do(code, func() (any, error) {
		if rec, ok := r.fromShared(ctx, code); ok {
			r.memory.Set(code, rec)
			return rec, nil
		}

		rec, err := r.lookup(ctx, code)
		if err != nil {
			static, ok := r.static[code]
			if !ok {
				return destination.LocationRecord{}, err
			}
			r.log.Info("using static location", "code", code, "err", err)
			r.memory.SetTTL(code, static, StaticLocationTTL)
			return static, nil
		}
		r.memory.Set(code, rec)
		r.toShared(ctx, rec)
		return rec, nil
	})
	if err != nil {
		return destination.LocationRecord{}, err
	}
	return v.(destination.LocationRecord), nil
}

// ResolveBatch resolves every distinct code once, in order of first appearance.
// The result is keyed by normalized code; failed and invalid codes are left out.
func (r *Resolver) ResolveBatch(ctx context.Context, codes []string) map[string]destination.LocationRecord {
	out := make(map[string]destination.LocationRecord, len(codes))
	failed := make(map[string]bool)

	for _, raw := range codes {
		code, err := destination.NormalizeCode(raw)
		if err != nil {
			r.log.Warn("skipping invalid location code", "code", raw, "err", err)
			continue
		}
		if _, ok := out[code]; ok || failed[code] {
			continue
		}

		rec, err := r.Resolve(ctx, code)
		if err != nil {
			r.log.Warn("geocoding failed", "code", code, "err", err)
			failed[code] = true
			continue
		}
		out[code] = rec
	}

	return out
}

// Lookups returns how many network lookups have been issued.
func (r *Resolver) Lookups() int64 {
	return r.lookups.Load()
}

// Stats returns the in-memory cache counters.
func (r *Resolver) Stats() cache.Stats {
	return r.memory.Stats()
}

func (r *Resolver) fromShared(ctx context.Context, code string) (destination.LocationRecord, bool) {
	if r.shared == nil {
		return destination.LocationRecord{}, false
	}
	rec, err := r.shared.Get(ctx, code)
	if err != nil {
		r.log.Warn("shared geocode cache get failed", "code", code, "err", err)
		return destination.LocationRecord{}, false
	}
	if rec == nil {
		return destination.LocationRecord{}, false
	}
	return *rec, true
}

func (r *Resolver) toShared(ctx context.Context, rec destination.LocationRecord) {
	if r.shared == nil {
		return
	}
	if err := r.shared.Set(ctx, rec.Code, &rec); err != nil {
		r.log.Warn("shared geocode cache set failed", "code", rec.Code, "err", err)
	}
}

type locationsResponse struct {
	Data []struct {
		SubType  string `json:"subType"`
		Name     string `json:"name"`
		IATACode string `json:"iataCode"`
		GeoCode  *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"geoCode"`
		Address struct {
			CityName    string `json:"cityName"`
			CountryCode string `json:"countryCode"`
		} `json:"address"`
		TimeZoneOffset string `json:"timeZoneOffset"`
	} `json:"data"`
}

func (r *Resolver) lookup(ctx context.Context, code string) (destination.LocationRecord, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return destination.LocationRecord{}, fmt.Errorf("%w: waiting for geocode rate limit: %v", destination.ErrUpstream, err)
	}
	r.lookups.Add(1)

	q := url.Values{}
	q.Set("subType", "AIRPORT,CITY")
	q.Set("keyword", code)
	q.Set("view", "LIGHT")

	var raw locationsResponse
	if err := r.api.Get(ctx, locationsPath, q, &raw); err != nil {
		return destination.LocationRecord{}, fmt.Errorf("geocoding %s: %w", code, err)
	}

	if len(raw.Data) == 0 {
		return destination.LocationRecord{}, fmt.Errorf("geocoding %s: %w", code, destination.ErrNotFound)
	}

	idx := -1
	for i, d := range raw.Data {
		if d.IATACode == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(raw.Data) > 1 {
			return destination.LocationRecord{}, fmt.Errorf("geocoding %s: %d candidates and none exact: %w", code, len(raw.Data), destination.ErrAmbiguous)
		}
		idx = 0
	}

	d := raw.Data[idx]
	if d.GeoCode == nil {
		return destination.LocationRecord{}, fmt.Errorf("geocoding %s: no coordinates: %w", code, destination.ErrAmbiguous)
	}
	coords := destination.Coordinates{Latitude: d.GeoCode.Latitude, Longitude: d.GeoCode.Longitude}
	if !coords.Valid() {
		return destination.LocationRecord{}, fmt.Errorf("geocoding %s: coordinates out of range: %w", code, destination.ErrAmbiguous)
	}

	rec := destination.LocationRecord{
		Code:        code,
		DisplayName: destination.DisplayName(d.Name),
		CityName:    destination.DisplayName(d.Address.CityName),
		CountryCode: d.Address.CountryCode,
		Coordinates: coords,
	}
	if rec.CityName == "" {
		rec.CityName = rec.DisplayName
	}
	if d.TimeZoneOffset != "" {
		tz := d.TimeZoneOffset
		rec.TimezoneOffset = &tz
	}

	return rec, nil
}
