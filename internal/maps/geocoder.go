package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"medquote/internal/modules/location"
	"medquote/internal/types"
)

// Geocoder resolves addresses with the Google Geocoding API and falls back to
// Places text search for named landmarks.
type Geocoder struct {
	client *maps.Client
	places *PlacesService
}

func NewGeocoder(apiKey string, opts ...maps.ClientOption) (*Geocoder, error) {
	client, err := newClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &Geocoder{client: client, places: &PlacesService{client: client, language: "en"}}, nil
}

func (g *Geocoder) Geocode(ctx context.Context, query string) (types.Point, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) > 0 {
		loc := results[0].Geometry.Location
		return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
	}
	if g.places == nil {
		return types.Point{}, location.ErrNoResults
	}
	return g.places.Geocode(ctx, query)
}
