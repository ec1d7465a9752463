package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"medquote/internal/modules/location"
	"medquote/internal/types"
)

// Place represents a simplified location result.
type Place struct {
	Name     string
	Address  string
	PlaceID  string
	Location types.Point
}

// PlacesService finds landmarks (hospitals, funeral homes, venues) that the
// geocoding API does not know by name.
type PlacesService struct {
	client   *maps.Client
	language string
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey string, opts ...maps.ClientOption) (*PlacesService, error) {
	client, err := newClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &PlacesService{client: client, language: "en"}, nil
}

// Search runs a text search and returns at most limit results in ranking order.
func (s *PlacesService) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	resp, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:    query,
		Language: s.language,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	var results []Place
	for _, r := range resp.Results {
		results = append(results, Place{
			Name:     r.Name,
			Address:  r.FormattedAddress,
			PlaceID:  r.PlaceID,
			Location: types.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Geocode returns the location of the best text-search match.
func (s *PlacesService) Geocode(ctx context.Context, query string) (types.Point, error) {
	results, err := s.Search(ctx, query, 1)
	if err != nil {
		return types.Point{}, err
	}
	if len(results) == 0 {
		return types.Point{}, location.ErrNoResults
	}
	return results[0].Location, nil
}
