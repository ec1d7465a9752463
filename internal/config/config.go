// README: Config loader with env defaults for HTTP, storage, AI providers, maps and logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"medquote/internal/logging"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var ErrMissingKey = errors.New("missing required setting")

type AIConfig struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	Temperature float64
	CallTimeout time.Duration
}

type MapsConfig struct {
	GoogleKey    string
	NominatimURL string
	NominatimRPS float64
	UserAgent    string
}

type QuoteConfig struct {
	DefaultDays int
	Currency    string
}

type Config struct {
	HTTP struct {
		Addr           string
		RequestTimeout time.Duration
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr       string
		SessionTTL time.Duration
		GeocodeTTL time.Duration
	}
	RateTablePath string
	AI            AIConfig
	Maps          MapsConfig
	Quote         QuoteConfig
	Log           logging.Config
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("MEDQUOTE_HTTP_ADDR", ":8080")
	cfg.HTTP.RequestTimeout = envOrDefaultDuration("MEDQUOTE_REQUEST_TIMEOUT", 60*time.Second)
	cfg.DB.DSN = os.Getenv("MEDQUOTE_DB_DSN")
	cfg.Redis.Addr = os.Getenv("MEDQUOTE_REDIS_ADDR")
	cfg.Redis.SessionTTL = envOrDefaultDuration("MEDQUOTE_SESSION_TTL", 0)
	cfg.Redis.GeocodeTTL = envOrDefaultDuration("MEDQUOTE_GEOCODE_TTL", 30*24*time.Hour)
	cfg.RateTablePath = os.Getenv("MEDQUOTE_RATE_TABLE")

	cfg.AI.Provider = strings.ToLower(envOrDefault("MEDQUOTE_AI_PROVIDER", ProviderOpenAI))
	cfg.AI.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.OpenAIModel = envOrDefault("MEDQUOTE_OPENAI_MODEL", "gpt-4o")
	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.GeminiModel = envOrDefault("MEDQUOTE_GEMINI_MODEL", "gemini-2.0-flash")
	cfg.AI.Temperature = envOrDefaultFloat("MEDQUOTE_AI_TEMPERATURE", 0.2)
	cfg.AI.CallTimeout = envOrDefaultDuration("MEDQUOTE_AI_TIMEOUT", 30*time.Second)

	cfg.Maps.GoogleKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Maps.NominatimURL = envOrDefault("MEDQUOTE_NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	cfg.Maps.NominatimRPS = envOrDefaultFloat("MEDQUOTE_NOMINATIM_RPS", 1)
	cfg.Maps.UserAgent = envOrDefault("MEDQUOTE_USER_AGENT", "medquote/1.0")

	cfg.Quote.DefaultDays = envOrDefaultInt("MEDQUOTE_DEFAULT_DAYS", 3)
	cfg.Quote.Currency = envOrDefault("MEDQUOTE_CURRENCY", "KRW")

	cfg.Log = logging.DefaultConfig()
	cfg.Log.Level = envOrDefault("MEDQUOTE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("MEDQUOTE_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Output = envOrDefault("MEDQUOTE_LOG_OUTPUT", cfg.Log.Output)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.AI.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingKey)
		}
	case ProviderGemini:
		if c.AI.GeminiKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingKey)
		}
	default:
		return fmt.Errorf("unknown MEDQUOTE_AI_PROVIDER %q", c.AI.Provider)
	}
	if c.Quote.DefaultDays < 1 {
		return fmt.Errorf("MEDQUOTE_DEFAULT_DAYS must be positive, got %d", c.Quote.DefaultDays)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
