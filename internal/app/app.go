// README: Application wiring shared by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medquote/internal/ai"
	"medquote/internal/config"
	"medquote/internal/infra"
	"medquote/internal/logging"
	"medquote/internal/maps"
	"medquote/internal/metrics"
	"medquote/internal/modules/intent"
	"medquote/internal/modules/location"
	"medquote/internal/modules/plan"
	"medquote/internal/modules/pricing"
	"medquote/internal/modules/session"
	"medquote/internal/service"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Collector
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Pricing *pricing.Service
	Planner *service.QuotePlanner

	closers []func() error
}

// Build connects to the configured backends and assembles the quote pipeline.
// Postgres and Redis are optional; without them the rate table comes from
// file or the embedded default and state is kept in memory.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logging.OrNop(logger), Metrics: metrics.NewCollector()}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	if cfg.DB.DSN != "" {
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		a.DB = db
		a.closers = append(a.closers, func() error { db.Close(); return nil })
	}
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		a.Redis = rdb
		a.closers = append(a.closers, rdb.Close)
	}

	table, err := a.loadRateTable(ctx)
	if err != nil {
		return err
	}
	a.Pricing = pricing.NewService(table)

	llm, err := a.newLLM(ctx)
	if err != nil {
		return err
	}
	llm = ai.WithMetrics(ai.WithTimeout(llm, cfg.AI.CallTimeout), a.Metrics)

	locations, err := a.newLocationService()
	if err != nil {
		return err
	}

	var sessionStore session.Store = session.NewMemoryStore()
	if a.Redis != nil {
		sessionStore = session.NewRedisStore(a.Redis, cfg.Redis.SessionTTL)
	}

	a.Planner = service.NewQuotePlanner(service.PlannerDeps{
		Sessions:    session.NewService(sessionStore),
		Classifier:  intent.NewService(llm, a.Logger.Named("intent"), a.Metrics),
		Itineraries: locations,
		Plans:       plan.NewGenerator(llm, a.Logger.Named("plan"), a.Metrics),
		Pricing:     a.Pricing,
		Chat:        llm,
		Composer:    service.NewComposer(),
		DefaultDays: cfg.Quote.DefaultDays,
		Logger:      a.Logger.Named("planner"),
		Metrics:     a.Metrics,
	})
	return nil
}

func (a *App) loadRateTable(ctx context.Context) (*pricing.RateTable, error) {
	switch {
	case a.Config.RateTablePath != "":
		a.Logger.Info("loading rate table from file", zap.String("path", a.Config.RateTablePath))
		return pricing.LoadFile(a.Config.RateTablePath)
	case a.DB != nil:
		table, err := pricing.NewStore(a.DB).LoadTable(ctx, a.Config.Quote.Currency)
		if errors.Is(err, pricing.ErrEmptyTable) {
			a.Logger.Warn("rate table in database is empty, using built-in tariff")
			return pricing.Default()
		}
		return table, err
	default:
		return pricing.Default()
	}
}

func (a *App) newLLM(ctx context.Context) (ai.LLMProvider, error) {
	cfg := a.Config.AI
	switch cfg.Provider {
	case config.ProviderGemini:
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiModel, float32(cfg.Temperature))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	case config.ProviderOpenAI:
		return ai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, float32(cfg.Temperature)), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func (a *App) newLocationService() (*location.Service, error) {
	cfg := a.Config.Maps
	deps := location.Deps{
		Secondary: maps.NewNominatim(cfg.NominatimURL, cfg.UserAgent, cfg.NominatimRPS),
		Cache:     location.NewMemoryCache(),
		Logger:    a.Logger.Named("location"),
		Metrics:   a.Metrics,
	}
	if a.Redis != nil {
		deps.Cache = location.NewStore(a.Redis, a.Config.Redis.GeocodeTTL)
	}
	if cfg.GoogleKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.GoogleKey)
		if err != nil {
			return nil, err
		}
		routes, err := maps.NewRouteService(cfg.GoogleKey)
		if err != nil {
			return nil, err
		}
		deps.Primary = geocoder
		deps.Road = routes
	} else {
		a.Logger.Warn("GOOGLE_MAPS_API_KEY not set, geocoding with Nominatim and routing by great circle only")
	}
	return location.NewService(deps), nil
}

// Close releases backend connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
