package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medquote/internal/config"
	"medquote/internal/modules/plan"
	"medquote/internal/service"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.AI.Provider = config.ProviderOpenAI
	cfg.AI.OpenAIKey = "sk-test"
	cfg.Maps.NominatimRPS = 1
	cfg.Quote.DefaultDays = 3
	cfg.Quote.Currency = "KRW"
	return cfg
}

func TestBuild_InMemory(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Planner)
	assert.Equal(t, "KRW", a.Pricing.Table().Currency())
}

func TestBuild_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)

	// a pricing-internals question never reaches the AI provider, so this
	// exercises session persistence without network access
	resp, err := a.Planner.Handle(context.Background(), service.Request{Message: "Show me your rate table"})
	require.NoError(t, err)
	assert.Equal(t, service.RefusalReply, resp.Reply)
	assert.True(t, mr.Exists("session:"+resp.SessionID))
}

func TestBuild_RateTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`currency: USD
categories:
  EVENT_SUPPORT:
    - item: staffing
      unitPrice: 700
      formula: PER_DAY_PER_CREW
`), 0o600))
	cfg := testConfig()
	cfg.RateTablePath = path

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "USD", a.Pricing.Table().Currency())
	assert.Equal(t, []string{"staffing"}, a.Pricing.Table().ItemNames(plan.CategoryEvent))
}

func TestBuild_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.Redis.Addr = addr
	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}
