package destination

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by every upstream and by the API.
const DateLayout = "2006-01-02"

// Coordinates is a point on the globe in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are inside their bounds.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// LocationRecord is a resolved place.
type LocationRecord struct {
	Code           string      `json:"code"`
	DisplayName    string      `json:"display_name"`
	CityName       string      `json:"city_name"`
	CountryCode    string      `json:"country_code"`
	Coordinates    Coordinates `json:"coordinates"`
	TimezoneOffset *string     `json:"timezone_offset,omitempty"`
}

// Condition is the normalized weather vocabulary.
type Condition string

const (
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionFog          Condition = "Fog"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionRain         Condition = "Rain"
	ConditionSnow         Condition = "Snow"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionUnknown      Condition = "Unknown"
)

// WeatherCondition is a classified condition with display hints.
type WeatherCondition struct {
	Main        Condition `json:"main"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// Precipitation holds a day's precipitation breakdown. Snowfall is in cm, the rest in mm.
type Precipitation struct {
	Probability float64 `json:"probability"`
	Total       float64 `json:"total"`
	Rain        float64 `json:"rain"`
	Snowfall    float64 `json:"snowfall"`
	Showers     float64 `json:"showers"`
	Hours       float64 `json:"hours"`
}

// Wind is measured in km/h; Direction is in degrees.
type Wind struct {
	Speed     float64 `json:"speed"`
	Gusts     float64 `json:"gusts"`
	Direction float64 `json:"direction"`
}

// ForecastDay is one day's weather for a location, in °C.
type ForecastDay struct {
	Date            string           `json:"date"`
	TempMin         float64          `json:"temp_min"`
	TempMax         float64          `json:"temp_max"`
	TempAvg         float64          `json:"temp_avg"`
	FeelsLikeMin    float64          `json:"feels_like_min"`
	FeelsLikeMax    float64          `json:"feels_like_max"`
	Condition       WeatherCondition `json:"condition"`
	Precipitation   Precipitation    `json:"precipitation"`
	Wind            Wind             `json:"wind"`
	Humidity        *float64         `json:"humidity,omitempty"`
	Visibility      *float64         `json:"visibility,omitempty"`
	UVIndex         float64          `json:"uv_index"`
	Sunrise         string           `json:"sunrise,omitempty"`
	Sunset          string           `json:"sunset,omitempty"`
	DaylightSeconds float64          `json:"daylight_seconds"`
	SunshineSeconds float64          `json:"sunshine_seconds"`
	Provider        string           `json:"provider"`
}

// Candidate is one destination option.
type Candidate struct {
	ID                string        `json:"id"`
	OriginCode        string        `json:"origin_code"`
	DestinationCode   string        `json:"destination_code"`
	DestinationName   string        `json:"destination_name"`
	Price             float64       `json:"price"`
	Currency          string        `json:"currency"`
	DepartureDate     string        `json:"departure_date"`
	ReturnDate        string        `json:"return_date"`
	CarrierLabel      string        `json:"carrier_label"`
	TripDurationLabel string        `json:"trip_duration_label"`
	StopCount         int           `json:"stop_count"`
	Forecast          []ForecastDay `json:"forecast,omitempty"`
	Score             int           `json:"score"`
}

// Direct reports whether the candidate has no intermediate stops.
func (c Candidate) Direct() bool {
	return c.StopCount == 0
}

// WithForecast returns a copy of c carrying the given forecast.
func (c Candidate) WithForecast(days []ForecastDay) Candidate {
	c.Forecast = days
	return c
}

// AverageTemperature returns the mean daily average of the forecast and false when there is none.
func (c Candidate) AverageTemperature() (float64, bool) {
	if len(c.Forecast) == 0 {
		return 0, false
	}
	var sum float64
	for _, d := range c.Forecast {
		sum += d.TempAvg
	}
	return sum / float64(len(c.Forecast)), true
}

// TravelStyle is the traveler's preferred kind of trip.
type TravelStyle string

const (
	StyleAdventure  TravelStyle = "adventure"
	StyleRelaxation TravelStyle = "relaxation"
	StyleCulture    TravelStyle = "culture"
	StyleParty      TravelStyle = "party"
	StyleNature     TravelStyle = "nature"
)

// Valid reports whether s is a known style.
func (s TravelStyle) Valid() bool {
	switch s {
	case StyleAdventure, StyleRelaxation, StyleCulture, StyleParty, StyleNature:
		return true
	}
	return false
}

// DefaultTripDays is the trip length used when no dates are given.
func (s TravelStyle) DefaultTripDays() int {
	switch s {
	case StyleRelaxation:
		return 10
	case StyleCulture:
		return 5
	case StyleParty:
		return 4
	default:
		return 7
	}
}

// WeatherPreference is the traveler's preferred temperature band.
type WeatherPreference string

const (
	WeatherHot  WeatherPreference = "hot"
	WeatherMild WeatherPreference = "mild"
	WeatherCold WeatherPreference = "cold"
	WeatherAny  WeatherPreference = "any"
)

func (w WeatherPreference) Valid() bool {
	switch w {
	case WeatherHot, WeatherMild, WeatherCold, WeatherAny:
		return true
	}
	return false
}

// Matches reports whether an average temperature in °C falls inside the band.
func (w WeatherPreference) Matches(avg float64) bool {
	switch w {
	case WeatherHot:
		return avg > 25
	case WeatherMild:
		return avg >= 15 && avg <= 25
	case WeatherCold:
		return avg < 15
	default:
		return true
	}
}

// Preferences is a single search request.
type Preferences struct {
	Origin                string            `json:"origin" validate:"required,len=3,alpha"`
	Budget                float64           `json:"budget" validate:"gt=0,lte=50000"`
	TravelStyle           TravelStyle       `json:"travel_style" validate:"required,oneof=adventure relaxation culture party nature"`
	WeatherPreference     WeatherPreference `json:"weather_preference" validate:"required,oneof=hot mild cold any"`
	PreferredDestinations []string          `json:"preferred_destinations,omitempty" validate:"max=20,dive,max=100"`
	DepartureDate         *time.Time        `json:"departure_date,omitempty"`
	ReturnDate            *time.Time        `json:"return_date,omitempty"`
}

// Prefers reports whether name is one of the explicitly preferred destinations.
func (p Preferences) Prefers(name string) bool {
	name = strings.TrimSpace(name)
	for _, want := range p.PreferredDestinations {
		if strings.EqualFold(strings.TrimSpace(want), name) {
			return true
		}
	}
	return false
}

// ReferenceDestination is a curated destination with an indicative fare,
// used when the live discovery API is unavailable.
type ReferenceDestination struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	CountryCode string        `json:"country_code"`
	Coordinates Coordinates   `json:"coordinates"`
	Fare        float64       `json:"fare"`
	Direct      bool          `json:"direct"`
	Styles      []TravelStyle `json:"styles"`
}

// HasStyle reports whether the destination is tagged with s.
func (r ReferenceDestination) HasStyle(s TravelStyle) bool {
	for _, have := range r.Styles {
		if have == s {
			return true
		}
	}
	return false
}

// Location returns the destination as a LocationRecord.
func (r ReferenceDestination) Location() LocationRecord {
	return LocationRecord{
		Code:        r.Code,
		DisplayName: r.Name,
		CityName:    r.Name,
		CountryCode: r.CountryCode,
		Coordinates: r.Coordinates,
	}
}
