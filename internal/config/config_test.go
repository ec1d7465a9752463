package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MEDQUOTE_AI_PROVIDER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Quote.DefaultDays != 3 {
		t.Errorf("DefaultDays = %d, want 3", cfg.Quote.DefaultDays)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.OpenAIModel != "gpt-4o" {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.HTTP.RequestTimeout != time.Minute {
		t.Errorf("RequestTimeout = %v", cfg.HTTP.RequestTimeout)
	}
	if cfg.Redis.GeocodeTTL != 30*24*time.Hour {
		t.Errorf("GeocodeTTL = %v", cfg.Redis.GeocodeTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MEDQUOTE_AI_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-test")
	t.Setenv("MEDQUOTE_DEFAULT_DAYS", "5")
	t.Setenv("MEDQUOTE_NOMINATIM_RPS", "0.5")
	t.Setenv("MEDQUOTE_SESSION_TTL", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.Provider != ProviderGemini {
		t.Errorf("Provider = %q", cfg.AI.Provider)
	}
	if cfg.Quote.DefaultDays != 5 {
		t.Errorf("DefaultDays = %d", cfg.Quote.DefaultDays)
	}
	if cfg.Maps.NominatimRPS != 0.5 {
		t.Errorf("NominatimRPS = %v", cfg.Maps.NominatimRPS)
	}
	if cfg.Redis.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.Redis.SessionTTL)
	}
}

func TestLoad_MissingProviderKey(t *testing.T) {
	t.Setenv("MEDQUOTE_AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("Load() error = %v, want ErrMissingKey", err)
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("MEDQUOTE_AI_PROVIDER", "llama")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
