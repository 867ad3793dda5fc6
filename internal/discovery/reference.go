package discovery

import "github.com/neexbeast/tripfinder/internal/destination"

// referenceData holds indicative round-trip fares in EUR from a central European origin.
var referenceData = []destination.ReferenceDestination{
	{Code: "BCN", Name: "Barcelona", CountryCode: "ES", Coordinates: destination.Coordinates{Latitude: 41.2971, Longitude: 2.0785}, Fare: 120, Direct: true},
	{Code: "PRG", Name: "Prague", CountryCode: "CZ", Coordinates: destination.Coordinates{Latitude: 50.1008, Longitude: 14.2600}, Fare: 95, Direct: true},
	{Code: "VIE", Name: "Vienna", CountryCode: "AT", Coordinates: destination.Coordinates{Latitude: 48.1103, Longitude: 16.5697}, Fare: 110, Direct: true},
	{Code: "FCO", Name: "Rome", CountryCode: "IT", Coordinates: destination.Coordinates{Latitude: 41.8003, Longitude: 12.2389}, Fare: 130, Direct: true},
	{Code: "ATH", Name: "Athens", CountryCode: "GR", Coordinates: destination.Coordinates{Latitude: 37.9364, Longitude: 23.9445}, Fare: 160, Direct: true},
	{Code: "IST", Name: "Istanbul", CountryCode: "TR", Coordinates: destination.Coordinates{Latitude: 41.2753, Longitude: 28.7519}, Fare: 180, Direct: true},
	{Code: "LIS", Name: "Lisbon", CountryCode: "PT", Coordinates: destination.Coordinates{Latitude: 38.7742, Longitude: -9.1342}, Fare: 150, Direct: true},
	{Code: "KRK", Name: "Krakow", CountryCode: "PL", Coordinates: destination.Coordinates{Latitude: 50.0777, Longitude: 19.7848}, Fare: 70, Direct: true},
	{Code: "CDG", Name: "Paris", CountryCode: "FR", Coordinates: destination.Coordinates{Latitude: 49.0097, Longitude: 2.5479}, Fare: 140, Direct: true},
	{Code: "IBZ", Name: "Ibiza", CountryCode: "ES", Coordinates: destination.Coordinates{Latitude: 38.8729, Longitude: 1.3731}, Fare: 170, Direct: true},
	{Code: "BER", Name: "Berlin", CountryCode: "DE", Coordinates: destination.Coordinates{Latitude: 52.3667, Longitude: 13.5033}, Fare: 90, Direct: true},
	{Code: "AMS", Name: "Amsterdam", CountryCode: "NL", Coordinates: destination.Coordinates{Latitude: 52.3105, Longitude: 4.7683}, Fare: 125, Direct: true},
	{Code: "BUD", Name: "Budapest", CountryCode: "HU", Coordinates: destination.Coordinates{Latitude: 47.4394, Longitude: 19.2618}, Fare: 85, Direct: true},
	{Code: "PMI", Name: "Palma De Mallorca", CountryCode: "ES", Coordinates: destination.Coordinates{Latitude: 39.5517, Longitude: 2.7388}, Fare: 140, Direct: true},
	{Code: "HER", Name: "Heraklion", CountryCode: "GR", Coordinates: destination.Coordinates{Latitude: 35.3397, Longitude: 25.1803}, Fare: 190, Direct: true},
	{Code: "LCA", Name: "Larnaca", CountryCode: "CY", Coordinates: destination.Coordinates{Latitude: 34.8751, Longitude: 33.6249}, Fare: 210, Direct: true},
	{Code: "FAO", Name: "Faro", CountryCode: "PT", Coordinates: destination.Coordinates{Latitude: 37.0144, Longitude: -7.9659}, Fare: 160, Direct: true},
	{Code: "TFS", Name: "Tenerife", CountryCode: "ES", Coordinates: destination.Coordinates{Latitude: 28.0445, Longitude: -16.5725}, Fare: 230, Direct: true},
	{Code: "MLA", Name: "Malta", CountryCode: "MT", Coordinates: destination.Coordinates{Latitude: 35.8575, Longitude: 14.4775}, Fare: 150, Direct: true},
	{Code: "KEF", Name: "Reykjavik", CountryCode: "IS", Coordinates: destination.Coordinates{Latitude: 63.9850, Longitude: -22.6056}, Fare: 280, Direct: true},
	{Code: "INN", Name: "Innsbruck", CountryCode: "AT", Coordinates: destination.Coordinates{Latitude: 47.2602, Longitude: 11.3440}, Fare: 180, Direct: false},
	{Code: "GVA", Name: "Geneva", CountryCode: "CH", Coordinates: destination.Coordinates{Latitude: 46.2381, Longitude: 6.1089}, Fare: 160, Direct: true},
	{Code: "SPU", Name: "Split", CountryCode: "HR", Coordinates: destination.Coordinates{Latitude: 43.5389, Longitude: 16.2980}, Fare: 150, Direct: true},
	{Code: "FNC", Name: "Madeira", CountryCode: "PT", Coordinates: destination.Coordinates{Latitude: 32.6979, Longitude: -16.7745}, Fare: 260, Direct: false},
	{Code: "OSL", Name: "Oslo", CountryCode: "NO", Coordinates: destination.Coordinates{Latitude: 60.1976, Longitude: 11.1004}, Fare: 170, Direct: true},
	{Code: "MIA", Name: "Miami", CountryCode: "US", Coordinates: destination.Coordinates{Latitude: 25.7959, Longitude: -80.2870}, Fare: 620, Direct: false},
	{Code: "CPT", Name: "Cape Town", CountryCode: "ZA", Coordinates: destination.Coordinates{Latitude: -33.9715, Longitude: 18.6021}, Fare: 780, Direct: false},
	{Code: "DPS", Name: "Bali", CountryCode: "ID", Coordinates: destination.Coordinates{Latitude: -8.7482, Longitude: 115.1672}, Fare: 850, Direct: false},
	{Code: "MLE", Name: "Male", CountryCode: "MV", Coordinates: destination.Coordinates{Latitude: 4.1918, Longitude: 73.5291}, Fare: 950, Direct: false},
	{Code: "ZQN", Name: "Queenstown", CountryCode: "NZ", Coordinates: destination.Coordinates{Latitude: -45.0211, Longitude: 168.7392}, Fare: 1450, Direct: false},
}

// ReferenceDestinations returns a fresh copy of the curated dataset with
// style tags taken from destination.StyleDestinations.
func ReferenceDestinations() []destination.ReferenceDestination {
	out := make([]destination.ReferenceDestination, len(referenceData))
	for i, r := range referenceData {
		r.Styles = destination.StylesFor(r.Code)
		out[i] = r
	}
	return out
}

// ReferenceLocations indexes the dataset by code.
func ReferenceLocations() map[string]destination.LocationRecord {
	out := make(map[string]destination.LocationRecord, len(referenceData))
	for _, r := range referenceData {
		out[r.Code] = r.Location()
	}
	return out
}
