package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/validation"
)

// Stage sources reported in outcomes.
const (
	SourceAmadeus     = "discovery:amadeus"
	SourceReferenceDB = "discovery:reference-db"
	SourceStatic      = "discovery:static"
)

// DefaultLeadDays is how far ahead the fallback paths assume departure when none is given.
const DefaultLeadDays = 14

// ReferenceRepository is satisfied by *storage.Repository.
type ReferenceRepository interface {
	ListReferenceDestinations(ctx context.Context, maxPrice float64) ([]destination.ReferenceDestination, error)
}

// Service discovers candidates from the live API, then the reference
// repository, then the embedded dataset.
type Service struct {
	live     *Client
	repo     ReferenceRepository
	currency string
	now      func() time.Time
	log      *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithRepository adds the Postgres-backed reference tier.
func WithRepository(repo ReferenceRepository) ServiceOption {
	return func(s *Service) { s.repo = repo }
}

// WithClock overrides time.Now for the default departure date.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithCurrency sets the currency fallback candidates are priced in. It
// defaults to the live client's currency.
func WithCurrency(code string) ServiceOption {
	return func(s *Service) { s.currency = strings.ToUpper(code) }
}

// NewService constructs a Service. live may be nil.
func NewService(live *Client, log *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{live: live, currency: DefaultCurrency, now: time.Now, log: log}
	if live != nil {
		s.currency = live.Currency()
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Currency is the currency every candidate from this Service is priced in.
func (s *Service) Currency() string { return s.currency }

// Discover runs the fallback chain for q. Validation and credential errors are
// returned; any other failure moves on to the next source.
func (s *Service) Discover(ctx context.Context, q Query) (destination.Outcome[[]destination.Candidate], error) {
	if err := validation.Struct(q); err != nil {
		return destination.Absent[[]destination.Candidate](SourceAmadeus), err
	}
	q.Origin = strings.ToUpper(q.Origin)

	chain := []destination.Strategy[[]destination.Candidate]{
		{Name: SourceAmadeus, Run: func(ctx context.Context) ([]destination.Candidate, error) {
			if s.live == nil || !s.live.Configured() {
				return nil, destination.ErrSkip
			}
			return s.live.Discover(ctx, q)
		}},
		{Name: SourceReferenceDB, Degraded: true, Run: func(ctx context.Context) ([]destination.Candidate, error) {
			if s.repo == nil {
				return nil, destination.ErrSkip
			}
			rate, err := referenceRate(s.currency)
			if err != nil {
				return nil, err
			}
			limit := q.MaxPrice
			if limit > 0 {
				limit /= rate
			}
			refs, err := s.repo.ListReferenceDestinations(ctx, limit)
			if err != nil {
				return nil, fmt.Errorf("listing reference destinations: %w", err)
			}
			if len(refs) == 0 {
				return nil, destination.ErrSkip
			}
			return s.fromReference(q, refs, rate), nil
		}},
		{Name: SourceStatic, Degraded: true, Run: func(context.Context) ([]destination.Candidate, error) {
			rate, err := referenceRate(s.currency)
			if err != nil {
				return nil, err
			}
			return s.fromReference(q, ReferenceDestinations(), rate), nil
		}},
	}

	return destination.RunChain(ctx, chain, func(name string, err error) {
		s.log.Warn("discovery source failed", "source", name, "origin", q.Origin, "err", err)
	})
}

// fromReference converts refs into the service currency at rate, filters them
// by budget and style and prices them as candidates, cheapest first. When the
// style filter leaves nothing, budget alone applies.
func (s *Service) fromReference(q Query, refs []destination.ReferenceDestination, rate float64) []destination.Candidate {
	var affordable, styled []destination.ReferenceDestination
	for _, r := range refs {
		if r.Code == q.Origin {
			continue
		}
		r.Fare = convertFare(r.Fare, rate)
		if q.MaxPrice > 0 && r.Fare > q.MaxPrice {
			continue
		}
		affordable = append(affordable, r)
		if q.Style.Valid() && r.HasStyle(q.Style) {
			styled = append(styled, r)
		}
	}
	picked := affordable
	if len(styled) > 0 {
		picked = styled
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Fare < picked[j].Fare })

	departure := s.now().UTC().AddDate(0, 0, DefaultLeadDays)
	if q.DepartureDate != nil {
		departure = *q.DepartureDate
	}
	ret := departure.AddDate(0, 0, q.Days)

	out := make([]destination.Candidate, 0, len(picked))
	for _, r := range picked {
		stops := 1
		if r.Direct {
			stops = 0
		}
		out = append(out, destination.Candidate{
			ID:                uuid.NewString(),
			OriginCode:        q.Origin,
			DestinationCode:   r.Code,
			DestinationName:   r.Name,
			Price:             r.Fare,
			Currency:          s.currency,
			DepartureDate:     departure.Format(destination.DateLayout),
			ReturnDate:        ret.Format(destination.DateLayout),
			CarrierLabel:      CarrierLabel,
			TripDurationLabel: destination.DurationLabel(q.Days),
			StopCount:         stops,
		})
	}
	return out
}
