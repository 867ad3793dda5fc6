// Package discovery finds candidate destinations reachable from an origin
// within a price limit, falling back to curated data when the live API is unavailable.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/neexbeast/tripfinder/internal/breaker"
	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/validation"
)

const flightDestinationsPath = "/v1/shopping/flight-destinations"

// DefaultCurrency is assumed when neither the offer nor the response names one.
const DefaultCurrency = "EUR"

// CarrierLabel is shown for every offer since the endpoint reports no carrier detail.
const CarrierLabel = "Multiple carriers"

// Query describes one discovery request.
type Query struct {
	Origin        string  `validate:"required,len=3,alpha"`
	MaxPrice      float64 `validate:"gte=0,lte=50000"`
	Days          int     `validate:"gte=1,lte=15"`
	DepartureDate *time.Time
	NonStop       bool
	Style         destination.TravelStyle `validate:"omitempty,oneof=adventure relaxation culture party nature"`
}

// apiClient is satisfied by *amadeus.Client.
type apiClient interface {
	Get(ctx context.Context, path string, query url.Values, dst any) error
	Configured() bool
}

// Client queries the Amadeus flight-destinations endpoint.
type Client struct {
	api      apiClient
	currency string
	breaker  *breaker.Breaker[[]destination.Candidate]
	log      *slog.Logger
}

// NewClient constructs a Client. An empty currency means DefaultCurrency.
func NewClient(api apiClient, currency string, cb breaker.Config, log *slog.Logger) *Client {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Client{
		api:      api,
		currency: strings.ToUpper(currency),
		breaker:  breaker.New[[]destination.Candidate]("amadeus-discovery", cb, log),
		log:      log,
	}
}

// Currency is the currency offers are requested and kept in.
func (c *Client) Currency() string { return c.currency }

// Configured reports whether live calls can be made.
func (c *Client) Configured() bool {
	return c.api != nil && c.api.Configured()
}

// Discover returns the destinations offered from q.Origin at or under q.MaxPrice.
// A zero MaxPrice means no limit. No offers is an empty slice, not an error.
func (c *Client) Discover(ctx context.Context, q Query) ([]destination.Candidate, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	origin := strings.ToUpper(q.Origin)

	params := url.Values{}
	params.Set("origin", origin)
	if q.MaxPrice > 0 {
		params.Set("maxPrice", strconv.Itoa(int(q.MaxPrice)))
	}
	params.Set("duration", strconv.Itoa(q.Days))
	params.Set("oneWay", "false")
	params.Set("viewBy", "DESTINATION")
	params.Set("nonStop", strconv.FormatBool(q.NonStop))
	if q.DepartureDate != nil {
		params.Set("departureDate", q.DepartureDate.Format(destination.DateLayout))
	}

	raw, err := c.breaker.Execute(func() ([]destination.Candidate, error) {
		var resp flightDestinationsResponse
		if err := c.api.Get(ctx, flightDestinationsPath, params, &resp); err != nil {
			return nil, err
		}
		return c.candidates(origin, q, resp), nil
	})
	if errors.Is(err, destination.ErrNotFound) {
		return []destination.Candidate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("discovering destinations from %s: %w", origin, err)
	}
	return raw, nil
}

type flightDestinationsResponse struct {
	Data []struct {
		Origin        string `json:"origin"`
		Destination   string `json:"destination"`
		DepartureDate string `json:"departureDate"`
		ReturnDate    string `json:"returnDate"`
		Price         struct {
			Total    flexFloat `json:"total"`
			Currency string    `json:"currency"`
		} `json:"price"`
	} `json:"data"`
	Meta struct {
		Currency string `json:"currency"`
	} `json:"meta"`
	Dictionaries struct {
		Locations map[string]struct {
			SubType      string `json:"subType"`
			DetailedName string `json:"detailedName"`
		} `json:"locations"`
	} `json:"dictionaries"`
}

// flexFloat accepts a number or a numeric string.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("price %q: %w", s, err)
		}
		f.Value, f.Set = v, true
		return nil
	}
	if err := json.Unmarshal(b, &f.Value); err != nil {
		return err
	}
	f.Set = true
	return nil
}

func (c *Client) candidates(origin string, q Query, resp flightDestinationsResponse) []destination.Candidate {
	out := make([]destination.Candidate, 0, len(resp.Data))
	stops := 1
	if q.NonStop {
		stops = 0
	}

	for _, d := range resp.Data {
		currency := d.Price.Currency
		if currency == "" {
			currency = resp.Meta.Currency
		}
		if currency == "" {
			currency = c.currency
		}
		currency = strings.ToUpper(currency)

		switch {
		case !d.Price.Total.Set, d.Price.Total.Value < 0:
			c.log.Debug("dropping offer without a usable price", "destination", d.Destination)
			continue
		case currency != c.currency:
			c.log.Debug("dropping offer in another currency", "destination", d.Destination, "currency", currency)
			continue
		case q.MaxPrice > 0 && d.Price.Total.Value > q.MaxPrice:
			continue
		}

		code := strings.ToUpper(d.Destination)
		if code == "" || code == origin {
			continue
		}

		departure := d.DepartureDate
		if departure == "" && q.DepartureDate != nil {
			departure = q.DepartureDate.Format(destination.DateLayout)
		}
		ret := d.ReturnDate
		if ret == "" && departure != "" {
			if t, err := time.Parse(destination.DateLayout, departure); err == nil {
				ret = t.AddDate(0, 0, q.Days).Format(destination.DateLayout)
			}
		}

		out = append(out, destination.Candidate{
			ID:                uuid.NewString(),
			OriginCode:        origin,
			DestinationCode:   code,
			DestinationName:   locationName(resp, code),
			Price:             d.Price.Total.Value,
			Currency:          currency,
			DepartureDate:     departure,
			ReturnDate:        ret,
			CarrierLabel:      CarrierLabel,
			TripDurationLabel: destination.DurationLabel(q.Days),
			StopCount:         stops,
		})
	}
	return out
}

// locationName uses the dictionary entry, e.g. "PARIS/FR" becomes "Paris".
func locationName(resp flightDestinationsResponse, code string) string {
	loc, ok := resp.Dictionaries.Locations[code]
	if !ok {
		return code
	}
	name, _, _ := strings.Cut(loc.DetailedName, "/")
	if name = destination.DisplayName(name); name == "" {
		return code
	}
	return name
}
