// Package weather fetches multi-day forecasts and degrades to a deterministic
// synthetic generator when the provider is unavailable.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/metrics"
)

// DefaultBaseURL is the Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// ProviderOpenMeteo labels forecasts from the live provider.
const ProviderOpenMeteo = "open-meteo"

var dailyMetrics = []string{
	"weather_code",
	"temperature_2m_max",
	"temperature_2m_min",
	"temperature_2m_mean",
	"apparent_temperature_max",
	"apparent_temperature_min",
	"precipitation_sum",
	"rain_sum",
	"showers_sum",
	"snowfall_sum",
	"precipitation_hours",
	"precipitation_probability_max",
	"wind_speed_10m_max",
	"wind_gusts_10m_max",
	"wind_direction_10m_dominant",
	"relative_humidity_2m_mean",
	"visibility_mean",
	"uv_index_max",
	"sunrise",
	"sunset",
	"daylight_duration",
	"sunshine_duration",
}

// Client fetches daily forecasts from Open-Meteo. No API key is required.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client using the production Open-Meteo URL.
func NewClient(timeout time.Duration) *Client {
	return &Client{baseURL: DefaultBaseURL, client: destination.NewHTTPClient(timeout)}
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, client: destination.NewHTTPClient(timeout)}
}

type dailyResponse struct {
	Daily struct {
		Time                     []string   `json:"time"`
		WeatherCode              []*int     `json:"weather_code"`
		TempMax                  []*float64 `json:"temperature_2m_max"`
		TempMin                  []*float64 `json:"temperature_2m_min"`
		TempMean                 []*float64 `json:"temperature_2m_mean"`
		ApparentMax              []*float64 `json:"apparent_temperature_max"`
		ApparentMin              []*float64 `json:"apparent_temperature_min"`
		PrecipitationSum         []*float64 `json:"precipitation_sum"`
		RainSum                  []*float64 `json:"rain_sum"`
		ShowersSum               []*float64 `json:"showers_sum"`
		SnowfallSum              []*float64 `json:"snowfall_sum"`
		PrecipitationHours       []*float64 `json:"precipitation_hours"`
		PrecipitationProbability []*float64 `json:"precipitation_probability_max"`
		WindSpeedMax             []*float64 `json:"wind_speed_10m_max"`
		WindGustsMax             []*float64 `json:"wind_gusts_10m_max"`
		WindDirection            []*float64 `json:"wind_direction_10m_dominant"`
		HumidityMean             []*float64 `json:"relative_humidity_2m_mean"`
		VisibilityMean           []*float64 `json:"visibility_mean"`
		UVIndexMax               []*float64 `json:"uv_index_max"`
		Sunrise                  []string   `json:"sunrise"`
		Sunset                   []string   `json:"sunset"`
		DaylightDuration         []*float64 `json:"daylight_duration"`
		SunshineDuration         []*float64 `json:"sunshine_duration"`
	} `json:"daily"`
}

// Forecast returns one unrounded ForecastDay per date in [start, end].
// A rejected window (400) or an empty response is ErrNotFound; every other
// failure is ErrUpstream.
func (c *Client) Forecast(ctx context.Context, coords destination.Coordinates, start, end time.Time) ([]destination.ForecastDay, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', 4, 64))
	q.Set("start_date", start.Format(destination.DateLayout))
	q.Set("end_date", end.Format(destination.DateLayout))
	q.Set("daily", strings.Join(dailyMetrics, ","))
	q.Set("timezone", "auto")
	q.Set("temperature_unit", "celsius")
	q.Set("wind_speed_unit", "kmh")
	q.Set("precipitation_unit", "mm")

	var raw dailyResponse
	if err := destination.GetJSON(ctx, c.client, c.baseURL+"?"+q.Encode(), nil, &raw); err != nil {
		metrics.UpstreamRequests.WithLabelValues(ProviderOpenMeteo, "error").Inc()
		var se *destination.StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			return nil, fmt.Errorf("open-meteo rejected window %s..%s: %w",
				start.Format(destination.DateLayout), end.Format(destination.DateLayout), destination.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: open-meteo forecast: %v", destination.ErrUpstream, err)
	}
	metrics.UpstreamRequests.WithLabelValues(ProviderOpenMeteo, "ok").Inc()

	d := raw.Daily
	if len(d.Time) == 0 {
		return nil, fmt.Errorf("open-meteo forecast for %s..%s: %w",
			start.Format(destination.DateLayout), end.Format(destination.DateLayout), destination.ErrNotFound)
	}

	days := make([]destination.ForecastDay, 0, len(d.Time))
	for i, date := range d.Time {
		tmax, tmin := at(d.TempMax, i), at(d.TempMin, i)
		avg := (tmax + tmin) / 2
		if mean := ptrAt(d.TempMean, i); mean != nil {
			avg = *mean
		}
		code := -1
		if i < len(d.WeatherCode) && d.WeatherCode[i] != nil {
			code = *d.WeatherCode[i]
		}

		days = append(days, destination.ForecastDay{
			Date:         date,
			TempMin:      tmin,
			TempMax:      tmax,
			TempAvg:      avg,
			FeelsLikeMin: at(d.ApparentMin, i),
			FeelsLikeMax: at(d.ApparentMax, i),
			Condition:    Classify(code),
			Precipitation: destination.Precipitation{
				Probability: at(d.PrecipitationProbability, i),
				Total:       at(d.PrecipitationSum, i),
				Rain:        at(d.RainSum, i),
				Snowfall:    at(d.SnowfallSum, i),
				Showers:     at(d.ShowersSum, i),
				Hours:       at(d.PrecipitationHours, i),
			},
			Wind: destination.Wind{
				Speed:     at(d.WindSpeedMax, i),
				Gusts:     at(d.WindGustsMax, i),
				Direction: at(d.WindDirection, i),
			},
			Humidity:        ptrAt(d.HumidityMean, i),
			Visibility:      ptrAt(d.VisibilityMean, i),
			UVIndex:         at(d.UVIndexMax, i),
			Sunrise:         strAt(d.Sunrise, i),
			Sunset:          strAt(d.Sunset, i),
			DaylightSeconds: at(d.DaylightDuration, i),
			SunshineSeconds: at(d.SunshineDuration, i),
			Provider:        ProviderOpenMeteo,
		})
	}

	return days, nil
}

func ptrAt(vals []*float64, i int) *float64 {
	if i >= len(vals) || vals[i] == nil {
		return nil
	}
	v := *vals[i]
	return &v
}

func at(vals []*float64, i int) float64 {
	if p := ptrAt(vals, i); p != nil {
		return *p
	}
	return 0
}

func strAt(vals []string, i int) string {
	if i >= len(vals) {
		return ""
	}
	return vals[i]
}
