// README: Route and itinerary models produced by the location resolver.
package location

import (
	"errors"
	"fmt"

	"medquote/internal/types"
)

// ErrNoResults is returned by geocoders that answered but found nothing.
var ErrNoResults = errors.New("no geocoding results")

// NotFoundError reports a place that no geocoding strategy could resolve.
type NotFoundError struct {
	Place string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("location not found: %q", e.Place)
}

// RouteSource names where a route estimate came from.
type RouteSource string

const (
	SourceRoadNetwork RouteSource = "road_network"
	SourceGreatCircle RouteSource = "great_circle"
)

type RouteInfo struct {
	DistanceKm float64     `json:"distanceKm"`
	DurationHr float64     `json:"durationHr"`
	Source     RouteSource `json:"source"`
}

type LegKind string

const (
	// LegDeparture is the ground transfer from the origin to the departure airport.
	LegDeparture LegKind = "departure"
	LegFlight    LegKind = "flight"
	// LegArrival is the ground transfer from the arrival airport to the destination.
	LegArrival LegKind = "arrival"
	// LegDirect is a single ground transfer when no flight is needed.
	LegDirect LegKind = "direct"
)

// Assumed average speeds for great-circle estimates, km/h.
var legSpeedKmH = map[LegKind]float64{
	LegDeparture: 50,
	LegFlight:    800,
	LegArrival:   40,
	LegDirect:    50,
}

type Leg struct {
	Kind  LegKind   `json:"kind"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	Route RouteInfo `json:"route"`
}

type Itinerary struct {
	Origin      types.Point `json:"-"`
	Destination types.Point `json:"-"`
	Legs        []Leg       `json:"legs"`
}

// BillableKm is the distance fares are priced on: the flight when there is
// one, otherwise the ground distance.
func (it Itinerary) BillableKm() float64 {
	var flight, ground float64
	for _, l := range it.Legs {
		if l.Kind == LegFlight {
			flight += l.Route.DistanceKm
		} else {
			ground += l.Route.DistanceKm
		}
	}
	if flight > 0 {
		return flight
	}
	return ground
}

func (it Itinerary) Total() RouteInfo {
	var out RouteInfo
	for _, l := range it.Legs {
		out.DistanceKm += l.Route.DistanceKm
		out.DurationHr += l.Route.DurationHr
	}
	return out
}
