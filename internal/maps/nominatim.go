package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"medquote/internal/modules/location"
	"medquote/internal/types"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim is an OpenStreetMap geocoder. The public instance allows one
// request per second and requires an identifying User-Agent.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewNominatim(baseURL, userAgent string, rps float64) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if rps <= 0 {
		rps = 1
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Geocode(ctx context.Context, query string) (types.Point, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return types.Point{}, err
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	q.Set("accept-language", "en")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return types.Point{}, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return types.Point{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Point{}, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return types.Point{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, location.ErrNoResults
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return types.Point{}, fmt.Errorf("nominatim latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return types.Point{}, fmt.Errorf("nominatim longitude %q: %w", results[0].Lon, err)
	}
	return types.Point{Lat: lat, Lng: lng}, nil
}
