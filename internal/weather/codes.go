package weather

import "github.com/neexbeast/tripfinder/internal/destination"

type wmoEntry struct {
	main        destination.Condition
	description string
	icon        string
}

// WMO weather interpretation codes (https://open-meteo.com/en/docs).
var wmoCodes = map[int]wmoEntry{
	0:  {destination.ConditionClear, "clear sky", "01d"},
	1:  {destination.ConditionClear, "mainly clear", "01d"},
	2:  {destination.ConditionClouds, "partly cloudy", "02d"},
	3:  {destination.ConditionClouds, "overcast", "04d"},
	45: {destination.ConditionFog, "fog", "50d"},
	48: {destination.ConditionFog, "depositing rime fog", "50d"},
	51: {destination.ConditionDrizzle, "light drizzle", "09d"},
	53: {destination.ConditionDrizzle, "moderate drizzle", "09d"},
	55: {destination.ConditionDrizzle, "dense drizzle", "09d"},
	56: {destination.ConditionDrizzle, "light freezing drizzle", "09d"},
	57: {destination.ConditionDrizzle, "dense freezing drizzle", "09d"},
	61: {destination.ConditionRain, "slight rain", "10d"},
	63: {destination.ConditionRain, "moderate rain", "10d"},
	65: {destination.ConditionRain, "heavy rain", "10d"},
	66: {destination.ConditionRain, "light freezing rain", "13d"},
	67: {destination.ConditionRain, "heavy freezing rain", "13d"},
	71: {destination.ConditionSnow, "slight snow", "13d"},
	73: {destination.ConditionSnow, "moderate snow", "13d"},
	75: {destination.ConditionSnow, "heavy snow", "13d"},
	77: {destination.ConditionSnow, "snow grains", "13d"},
	80: {destination.ConditionRain, "slight rain showers", "09d"},
	81: {destination.ConditionRain, "moderate rain showers", "09d"},
	82: {destination.ConditionRain, "violent rain showers", "09d"},
	85: {destination.ConditionSnow, "slight snow showers", "13d"},
	86: {destination.ConditionSnow, "heavy snow showers", "13d"},
	95: {destination.ConditionThunderstorm, "thunderstorm", "11d"},
	96: {destination.ConditionThunderstorm, "thunderstorm with slight hail", "11d"},
	99: {destination.ConditionThunderstorm, "thunderstorm with heavy hail", "11d"},
}

// Classify translates a WMO code into the fixed condition vocabulary.
func Classify(code int) destination.WeatherCondition {
	if e, ok := wmoCodes[code]; ok {
		return destination.WeatherCondition{Main: e.main, Description: e.description, Icon: e.icon}
	}
	return destination.WeatherCondition{Main: destination.ConditionUnknown, Description: "unknown", Icon: "unknown"}
}
