// Package metrics holds the Prometheus collectors for the quotation pipeline.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medquote"

type Collector struct {
	registry *prometheus.Registry

	AIRequestDuration   *prometheus.HistogramVec
	GeocodeResolutions  *prometheus.CounterVec
	RouteEstimates      *prometheus.CounterVec
	PlanFallbacks       prometheus.Counter
	Intents             *prometheus.CounterVec
	Quotes              *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		AIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_seconds",
			Help:      "Latency of AI provider completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"provider", "status"}),
		GeocodeResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_resolutions_total",
			Help:      "Geocode lookups by the strategy tier that answered them",
		}, []string{"tier"}),
		RouteEstimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_estimates_total",
			Help:      "Route legs by the source that produced the estimate",
		}, []string{"source"}),
		PlanFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_fallbacks_total",
			Help:      "Generated plans replaced by the default plan",
		}),
		Intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Classified chat intents",
		}, []string{"intent"}),
		Quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quotes produced by category",
		}, []string{"category"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status_code"}),
	}
	reg.MustRegister(
		c.AIRequestDuration,
		c.GeocodeResolutions,
		c.RouteEstimates,
		c.PlanFallbacks,
		c.Intents,
		c.Quotes,
		c.HTTPRequestDuration,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveAI(provider string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.AIRequestDuration.WithLabelValues(provider, status(err)).Observe(elapsed.Seconds())
}

func (c *Collector) GeocodeResolved(tier string) {
	if c == nil {
		return
	}
	c.GeocodeResolutions.WithLabelValues(tier).Inc()
}

func (c *Collector) RouteEstimated(source string) {
	if c == nil {
		return
	}
	c.RouteEstimates.WithLabelValues(source).Inc()
}

func (c *Collector) PlanFellBack() {
	if c == nil {
		return
	}
	c.PlanFallbacks.Inc()
}

func (c *Collector) IntentClassified(intent string) {
	if c == nil {
		return
	}
	c.Intents.WithLabelValues(intent).Inc()
}

func (c *Collector) QuoteProduced(category string) {
	if c == nil {
		return
	}
	c.Quotes.WithLabelValues(category).Inc()
}

func (c *Collector) ObserveHTTP(method, path, code string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
