// README: Location service resolves free-text places to coordinates and estimates route legs.
package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"medquote/internal/logging"
	"medquote/internal/metrics"
	"medquote/internal/types"
)

// Geocoder turns a free-text query into a coordinate. Implementations return
// ErrNoResults when the provider answered without a match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (types.Point, error)
}

// RoadRouter estimates a driving leg between two coordinates.
type RoadRouter interface {
	Drive(ctx context.Context, from, to types.Point) (distanceKm, durationHr float64, err error)
}

const (
	TierExact   = "exact"
	TierRewrite = "rewrite"
	TierSuffix  = "suffix"
	TierAirport = "airport"
	TierCache   = "cache"
)

// sharedResolveTimeout bounds one geocode resolution shared by concurrent callers.
const sharedResolveTimeout = 45 * time.Second

type geocodeStrategy struct {
	tier    string
	resolve func(ctx context.Context, place string) (types.Point, error)
}

type Deps struct {
	Primary   Geocoder
	Secondary Geocoder
	Road      RoadRouter
	Cache     Cache
	Countries []string
	Logger    *zap.Logger
	Metrics   *metrics.Collector
}

type Service struct {
	strategies []geocodeStrategy
	primary    Geocoder
	secondary  Geocoder
	road       RoadRouter
	cache      Cache
	countries  []string
	group      singleflight.Group
	logger     *zap.Logger
	metrics    *metrics.Collector
}

func NewService(deps Deps) *Service {
	s := &Service{
		primary:   deps.Primary,
		secondary: deps.Secondary,
		road:      deps.Road,
		cache:     deps.Cache,
		countries: deps.Countries,
		logger:    logging.OrNop(deps.Logger),
		metrics:   deps.Metrics,
	}
	if s.primary == nil {
		s.primary, s.secondary = s.secondary, nil
	}
	if s.countries == nil {
		s.countries = DefaultCountries
	}
	if s.cache == nil {
		s.cache = NewMemoryCache()
	}
	s.strategies = []geocodeStrategy{
		{tier: TierExact, resolve: s.exact},
		{tier: TierRewrite, resolve: s.rewrite},
		{tier: TierSuffix, resolve: s.suffix},
	}
	return s
}

// Geocode resolves place through the strategy chain. The first strategy that
// succeeds wins; when all fail the error is a *NotFoundError.
func (s *Service) Geocode(ctx context.Context, place string) (types.Point, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return types.Point{}, &NotFoundError{Place: place}
	}
	if a, ok := LookupAirport(place); ok {
		s.metrics.GeocodeResolved(TierAirport)
		return a.Point, nil
	}

	key := NormalizeKey(place)
	if p, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		s.metrics.GeocodeResolved(TierCache)
		return p, nil
	}

	// Detached from the caller that started it; each caller waits on its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedResolveTimeout)
		defer cancel()
		p, err := s.resolve(ctx, place)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, p); err != nil {
			s.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
		}
		return p, nil
	})
	select {
	case <-ctx.Done():
		return types.Point{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return types.Point{}, res.Err
		}
		return res.Val.(types.Point), nil
	}
}

func (s *Service) resolve(ctx context.Context, place string) (types.Point, error) {
	for _, st := range s.strategies {
		p, err := st.resolve(ctx, place)
		if err == nil {
			s.logger.Debug("geocoded", zap.String("place", place), zap.String("tier", st.tier))
			s.metrics.GeocodeResolved(st.tier)
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Point{}, ctxErr
		}
	}
	return types.Point{}, &NotFoundError{Place: place}
}

func (s *Service) exact(ctx context.Context, place string) (types.Point, error) {
	return s.lookup(ctx, s.primary, place)
}

func (s *Service) rewrite(ctx context.Context, place string) (types.Point, error) {
	q, ok := rewriteLocalityCountry(place)
	if !ok {
		return types.Point{}, ErrNoResults
	}
	return s.lookup(ctx, s.primary, q)
}

func (s *Service) suffix(ctx context.Context, place string) (types.Point, error) {
	for _, q := range suffixCandidates(place, s.countries) {
		if q != place {
			if p, err := s.lookup(ctx, s.primary, q); err == nil {
				return p, nil
			}
		}
		if p, err := s.lookup(ctx, s.secondary, q); err == nil {
			return p, nil
		}
		if err := ctx.Err(); err != nil {
			return types.Point{}, err
		}
	}
	return types.Point{}, ErrNoResults
}

func (s *Service) lookup(ctx context.Context, g Geocoder, q string) (types.Point, error) {
	if g == nil {
		return types.Point{}, ErrNoResults
	}
	p, err := g.Geocode(ctx, q)
	if err != nil {
		if !errors.Is(err, ErrNoResults) {
			s.logger.Warn("geocoder failed", zap.String("query", q), zap.Error(err))
		}
		return types.Point{}, err
	}
	if !p.Valid() {
		return types.Point{}, fmt.Errorf("geocoder returned out-of-range point %v", p)
	}
	return p, nil
}

// Route estimates one leg. It never fails: when the road network provider is
// absent or errors, the great-circle distance at the leg's assumed speed is used.
func (s *Service) Route(ctx context.Context, from, to types.Point, kind LegKind) RouteInfo {
	if kind != LegFlight && s.road != nil {
		km, hr, err := s.road.Drive(ctx, from, to)
		if err == nil && validMeasure(km) && validMeasure(hr) {
			s.metrics.RouteEstimated(string(SourceRoadNetwork))
			return RouteInfo{DistanceKm: km, DurationHr: hr, Source: SourceRoadNetwork}
		}
		s.logger.Debug("road routing unavailable, using great circle",
			zap.String("leg", string(kind)), zap.Error(err))
	}
	s.metrics.RouteEstimated(string(SourceGreatCircle))
	return greatCircleRoute(from, to, legSpeedKmH[kind])
}

func validMeasure(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

type ItineraryRequest struct {
	Origin           string
	Destination      string
	DepartureAirport string
	ArrivalAirport   string
}

// PlanItinerary geocodes both ends concurrently and lays out the ground and
// flight legs between them. Airports default to the nearest known airport.
func (s *Service) PlanItinerary(ctx context.Context, req ItineraryRequest) (Itinerary, error) {
	var origin, dest types.Point
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		origin, err = s.Geocode(gctx, req.Origin)
		return err
	})
	g.Go(func() error {
		var err error
		dest, err = s.Geocode(gctx, req.Destination)
		return err
	})
	if err := g.Wait(); err != nil {
		return Itinerary{}, err
	}

	it := Itinerary{Origin: origin, Destination: dest}
	dep := s.airportFor(req.DepartureAirport, origin)
	arr := s.airportFor(req.ArrivalAirport, dest)
	if dep.Code == arr.Code {
		it.Legs = []Leg{{
			Kind: LegDirect, From: req.Origin, To: req.Destination,
			Route: s.Route(ctx, origin, dest, LegDirect),
		}}
		return it, nil
	}

	it.Legs = []Leg{
		{Kind: LegDeparture, From: req.Origin, To: dep.Code, Route: s.Route(ctx, origin, dep.Point, LegDeparture)},
		{Kind: LegFlight, From: dep.Code, To: arr.Code, Route: s.Route(ctx, dep.Point, arr.Point, LegFlight)},
		{Kind: LegArrival, From: arr.Code, To: req.Destination, Route: s.Route(ctx, arr.Point, dest, LegArrival)},
	}
	return it, nil
}

func (s *Service) airportFor(code string, near types.Point) Airport {
	if code != "" {
		if a, ok := LookupAirport(code); ok {
			return a
		}
		s.logger.Info("unknown airport code, using nearest", zap.String("code", code))
	}
	return NearestAirport(near)
}
