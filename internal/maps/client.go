// README: Shared Google Maps client construction for geocoding, places and distance matrix.
package maps

import (
	"fmt"

	"googlemaps.github.io/maps"
)

func newClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
