package location

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medquote/internal/types"
)

// fakeGeocoder answers only the queries it knows and records every call.
type fakeGeocoder struct {
	mu      sync.Mutex
	known   map[string]types.Point
	failAll error
	calls   []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, q string) (types.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if f.failAll != nil {
		return types.Point{}, f.failAll
	}
	if p, ok := f.known[q]; ok {
		return p, nil
	}
	return types.Point{}, ErrNoResults
}

type fakeRoad struct {
	km, hr float64
	err    error
}

func (f fakeRoad) Drive(context.Context, types.Point, types.Point) (float64, float64, error) {
	return f.km, f.hr, f.err
}

var (
	hcmc  = types.Point{Lat: 10.7579, Lng: 106.6596}
	seoul = types.Point{Lat: 37.5796, Lng: 126.9990}
)

func TestGeocode_ExactTier(t *testing.T) {
	primary := &fakeGeocoder{known: map[string]types.Point{"Cho Ray Hospital": hcmc}}
	svc := NewService(Deps{Primary: primary})

	got, err := svc.Geocode(context.Background(), "Cho Ray Hospital")
	require.NoError(t, err)
	assert.Equal(t, hcmc, got)
	assert.Equal(t, []string{"Cho Ray Hospital"}, primary.calls)
}

func TestGeocode_RewriteTier(t *testing.T) {
	primary := &fakeGeocoder{known: map[string]types.Point{"Ho Chi Minh, Vietnam": hcmc}}
	svc := NewService(Deps{Primary: primary})

	got, err := svc.Geocode(context.Background(), "Cho Ray Hospital Ho Chi Minh Vietnam")
	require.NoError(t, err)
	assert.Equal(t, hcmc, got)
	assert.Equal(t, []string{"Cho Ray Hospital Ho Chi Minh Vietnam", "Ho Chi Minh, Vietnam"}, primary.calls)
}

func TestGeocode_SuffixTierFallsBackToSecondary(t *testing.T) {
	primary := &fakeGeocoder{}
	secondary := &fakeGeocoder{known: map[string]types.Point{"Cho Ray, Vietnam": hcmc}}
	svc := NewService(Deps{Primary: primary, Secondary: secondary, Countries: []string{"South Korea", "Vietnam"}})

	got, err := svc.Geocode(context.Background(), "Cho Ray")
	require.NoError(t, err)
	assert.Equal(t, hcmc, got)
	// exact, the "locality, country" rewrite, then suffixed candidates
	assert.Equal(t, []string{"Cho Ray", "Cho, Ray", "Cho Ray, South Korea", "Cho Ray, Vietnam"}, primary.calls)
	assert.Equal(t, []string{"Cho Ray", "Cho Ray, South Korea", "Cho Ray, Vietnam"}, secondary.calls)
}

func TestGeocode_ExhaustsChainBeforeNotFound(t *testing.T) {
	primary := &fakeGeocoder{}
	secondary := &fakeGeocoder{failAll: errors.New("503 from provider")}
	countries := []string{"South Korea", "Vietnam", "Japan"}
	svc := NewService(Deps{Primary: primary, Secondary: secondary, Countries: countries})

	_, err := svc.Geocode(context.Background(), "Nowhere Clinic")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Nowhere Clinic", nf.Place)
	// every suffix candidate reached the secondary provider
	assert.Len(t, secondary.calls, len(countries)+1)
	assert.Contains(t, primary.calls, "Nowhere Clinic, Japan")
}

func TestGeocode_SecondaryBecomesPrimaryWhenAlone(t *testing.T) {
	only := &fakeGeocoder{known: map[string]types.Point{"Seoul": seoul}}
	svc := NewService(Deps{Secondary: only})

	got, err := svc.Geocode(context.Background(), "Seoul")
	require.NoError(t, err)
	assert.Equal(t, seoul, got)
}

func TestGeocode_AirportCodesSkipProviders(t *testing.T) {
	primary := &fakeGeocoder{}
	svc := NewService(Deps{Primary: primary})

	got, err := svc.Geocode(context.Background(), "icn")
	require.NoError(t, err)
	assert.Equal(t, 37.4691, got.Lat)
	assert.Empty(t, primary.calls)
}

func TestGeocode_MemoizesByNormalizedKey(t *testing.T) {
	primary := &fakeGeocoder{known: map[string]types.Point{"Asan Medical Center": seoul}}
	svc := NewService(Deps{Primary: primary})
	ctx := context.Background()

	_, err := svc.Geocode(ctx, "Asan Medical Center")
	require.NoError(t, err)
	got, err := svc.Geocode(ctx, "asan  medical center.")
	require.NoError(t, err)

	assert.Equal(t, seoul, got)
	assert.Len(t, primary.calls, 1)
}

// gatedGeocoder holds every lookup until release is closed.
type gatedGeocoder struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedGeocoder) Geocode(ctx context.Context, _ string) (types.Point, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	select {
	case <-g.release:
		return seoul, nil
	case <-ctx.Done():
		return types.Point{}, ctx.Err()
	}
}

func TestGeocode_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	g := &gatedGeocoder{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(Deps{Primary: g})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Geocode(firstCtx, "Seoul National University Hospital")
		firstErr <- err
	}()
	<-g.entered

	type result struct {
		p   types.Point
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := svc.Geocode(context.Background(), "seoul national university hospital")
		second <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(g.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, seoul, got.p)
	assert.Equal(t, int32(1), g.calls.Load(), "both callers share one lookup")

	// the shared result was memoized even though its first caller left
	p, err := svc.Geocode(context.Background(), "Seoul National University Hospital")
	require.NoError(t, err)
	assert.Equal(t, seoul, p)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestGeocode_EmptyPlace(t *testing.T) {
	svc := NewService(Deps{})
	_, err := svc.Geocode(context.Background(), "   ")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGeocode_RejectsOutOfRangePoints(t *testing.T) {
	primary := &fakeGeocoder{known: map[string]types.Point{"Bad": {Lat: 123, Lng: 0}}}
	svc := NewService(Deps{Primary: primary, Countries: []string{}})

	_, err := svc.Geocode(context.Background(), "Bad")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRoute_FallsBackToGreatCircle(t *testing.T) {
	tests := []struct {
		name string
		road RoadRouter
	}{
		{"no provider", nil},
		{"provider error", fakeRoad{err: errors.New("NOT_FOUND")}},
		{"negative distance", fakeRoad{km: -1, hr: 1}},
		{"NaN duration", fakeRoad{km: 10, hr: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(Deps{Road: tt.road})
			got := svc.Route(context.Background(), hcmc, seoul, LegDeparture)

			want := Haversine(hcmc, seoul)
			assert.Equal(t, SourceGreatCircle, got.Source)
			assert.InDelta(t, want, got.DistanceKm, 1e-6)
			assert.InDelta(t, want/50, got.DurationHr, 1e-6)
		})
	}
}

func TestRoute_UsesRoadNetwork(t *testing.T) {
	svc := NewService(Deps{Road: fakeRoad{km: 12.3, hr: 0.4}})
	got := svc.Route(context.Background(), hcmc, hcmc, LegArrival)
	assert.Equal(t, RouteInfo{DistanceKm: 12.3, DurationHr: 0.4, Source: SourceRoadNetwork}, got)
}

func TestRoute_FlightNeverUsesRoadNetwork(t *testing.T) {
	svc := NewService(Deps{Road: fakeRoad{km: 1, hr: 1}})
	got := svc.Route(context.Background(), hcmc, seoul, LegFlight)
	assert.Equal(t, SourceGreatCircle, got.Source)
	assert.InDelta(t, got.DistanceKm/800, got.DurationHr, 1e-9)
}

func TestPlanItinerary_ThreeLegs(t *testing.T) {
	primary := &fakeGeocoder{known: map[string]types.Point{
		"Cho Ray Hospital":                   hcmc,
		"Seoul National University Hospital": seoul,
	}}
	svc := NewService(Deps{Primary: primary})

	it, err := svc.PlanItinerary(context.Background(), ItineraryRequest{
		Origin:         "Cho Ray Hospital",
		Destination:    "Seoul National University Hospital",
		ArrivalAirport: "icn",
	})
	require.NoError(t, err)
	require.Len(t, it.Legs, 3)

	assert.Equal(t, LegDeparture, it.Legs[0].Kind)
	assert.Equal(t, "SGN", it.Legs[0].To)
	assert.Equal(t, "SGN", it.Legs[1].From)
	assert.Equal(t, "ICN", it.Legs[1].To)
	assert.Equal(t, it.Legs[1].Route.DistanceKm, it.BillableKm())

	total := it.Total()
	assert.Greater(t, total.DistanceKm, it.BillableKm())
}

func TestPlanItinerary_SameAirportIsDirect(t *testing.T) {
	other := types.Point{Lat: 10.80, Lng: 106.70}
	primary := &fakeGeocoder{known: map[string]types.Point{"A": hcmc, "B": other}}
	svc := NewService(Deps{Primary: primary})

	it, err := svc.PlanItinerary(context.Background(), ItineraryRequest{Origin: "A", Destination: "B"})
	require.NoError(t, err)
	require.Len(t, it.Legs, 1)
	assert.Equal(t, LegDirect, it.Legs[0].Kind)
	assert.InDelta(t, Haversine(hcmc, other), it.BillableKm(), 1e-9)
}

func TestPlanItinerary_NotFound(t *testing.T) {
	primary := &fakeGeocoder{known: map[string]types.Point{"A": hcmc}}
	svc := NewService(Deps{Primary: primary, Countries: []string{}})

	_, err := svc.PlanItinerary(context.Background(), ItineraryRequest{Origin: "A", Destination: "Atlantis"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Atlantis", nf.Place)
}
