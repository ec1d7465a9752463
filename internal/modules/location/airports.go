// README: Static airport table; airport coordinates never hit a geocoder.
package location

import (
	"strings"

	"medquote/internal/types"
)

type Airport struct {
	Code  string      `json:"code"`
	Name  string      `json:"name"`
	Point types.Point `json:"-"`
}

var airports = []Airport{
	{Code: "ICN", Name: "Incheon International", Point: types.Point{Lat: 37.4691, Lng: 126.4505}},
	{Code: "GMP", Name: "Gimpo International", Point: types.Point{Lat: 37.5583, Lng: 126.7901}},
	{Code: "PUS", Name: "Gimhae International", Point: types.Point{Lat: 35.1795, Lng: 128.9382}},
	{Code: "CJU", Name: "Jeju International", Point: types.Point{Lat: 33.5104, Lng: 126.4914}},
	{Code: "SGN", Name: "Tan Son Nhat International", Point: types.Point{Lat: 10.8188, Lng: 106.6520}},
	{Code: "HAN", Name: "Noi Bai International", Point: types.Point{Lat: 21.2212, Lng: 105.8072}},
	{Code: "DAD", Name: "Da Nang International", Point: types.Point{Lat: 16.0439, Lng: 108.1994}},
	{Code: "BKK", Name: "Suvarnabhumi", Point: types.Point{Lat: 13.6900, Lng: 100.7501}},
	{Code: "MNL", Name: "Ninoy Aquino International", Point: types.Point{Lat: 14.5086, Lng: 121.0194}},
	{Code: "CEB", Name: "Mactan-Cebu International", Point: types.Point{Lat: 10.3075, Lng: 123.9794}},
	{Code: "SIN", Name: "Singapore Changi", Point: types.Point{Lat: 1.3644, Lng: 103.9915}},
	{Code: "KUL", Name: "Kuala Lumpur International", Point: types.Point{Lat: 2.7456, Lng: 101.7072}},
	{Code: "CGK", Name: "Soekarno-Hatta International", Point: types.Point{Lat: -6.1256, Lng: 106.6559}},
	{Code: "NRT", Name: "Narita International", Point: types.Point{Lat: 35.7720, Lng: 140.3929}},
	{Code: "KIX", Name: "Kansai International", Point: types.Point{Lat: 34.4347, Lng: 135.2440}},
	{Code: "PVG", Name: "Shanghai Pudong International", Point: types.Point{Lat: 31.1443, Lng: 121.8083}},
	{Code: "PEK", Name: "Beijing Capital International", Point: types.Point{Lat: 40.0799, Lng: 116.6031}},
	{Code: "HKG", Name: "Hong Kong International", Point: types.Point{Lat: 22.3080, Lng: 113.9185}},
	{Code: "TPE", Name: "Taoyuan International", Point: types.Point{Lat: 25.0797, Lng: 121.2342}},
	{Code: "DXB", Name: "Dubai International", Point: types.Point{Lat: 25.2532, Lng: 55.3657}},
	{Code: "SYD", Name: "Sydney Kingsford Smith", Point: types.Point{Lat: -33.9399, Lng: 151.1753}},
	{Code: "LAX", Name: "Los Angeles International", Point: types.Point{Lat: 33.9416, Lng: -118.4085}},
	{Code: "JFK", Name: "John F. Kennedy International", Point: types.Point{Lat: 40.6413, Lng: -73.7781}},
	{Code: "LHR", Name: "London Heathrow", Point: types.Point{Lat: 51.4700, Lng: -0.4543}},
	{Code: "FRA", Name: "Frankfurt am Main", Point: types.Point{Lat: 50.0379, Lng: 8.5622}},
	{Code: "CDG", Name: "Paris Charles de Gaulle", Point: types.Point{Lat: 49.0097, Lng: 2.5479}},
}

// legacy identifiers accepted from older clients
var airportAliases = map[string]string{
	"SGNH":    "SGN",
	"GIMPO":   "GMP",
	"INCHEON": "ICN",
}

// LookupAirport finds an airport by IATA code or alias, case-insensitively.
func LookupAirport(code string) (Airport, bool) {
	key := strings.ToUpper(strings.TrimSpace(code))
	if alias, ok := airportAliases[key]; ok {
		key = alias
	}
	for _, a := range airports {
		if a.Code == key {
			return a, true
		}
	}
	return Airport{}, false
}

// NearestAirport returns the table airport closest to p.
func NearestAirport(p types.Point) Airport {
	type ranked struct {
		airport Airport
		km      float64
	}
	list := make([]ranked, len(airports))
	for i, a := range airports {
		list[i] = ranked{airport: a, km: Haversine(p, a.Point)}
	}
	sortByDistance(list, func(r ranked) float64 { return r.km })
	return list[0].airport
}
