package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()
	c.GeocodeResolved("suffix")
	c.GeocodeResolved("suffix")
	c.RouteEstimated("great_circle")
	c.PlanFellBack()
	c.ObserveAI("openai", errors.New("boom"), 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.GeocodeResolutions.WithLabelValues("suffix")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RouteEstimates.WithLabelValues("great_circle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PlanFallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(c.AIRequestDuration))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.GeocodeResolved("exact")
		c.PlanFellBack()
		c.ObserveAI("gemini", nil, time.Second)
		c.QuoteProduced("AIR_TRANSPORT")
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.IntentClassified("CALCULATE_COST")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `medquote_intents_total{intent="CALCULATE_COST"} 1`), string(body))
}
