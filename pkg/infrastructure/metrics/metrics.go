// Package metrics exports retrieval counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WangYihang/AdsTxt-Crawler/pkg/domain/entity"
)

const namespace = "adstxt"

// Collector records attempts and retrievals. It satisfies
// application.RetrievalObserver.
type Collector struct {
	registry *prometheus.Registry

	attempts    *prometheus.CounterVec
	retrievals  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	queueLength prometheus.Gauge
	active      prometheus.Gauge
}

// NewCollector creates a collector on its own registry, including the Go
// runtime and process collectors
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Retrieval attempts by source and outcome kind.",
		}, []string{"source", "kind", "accepted"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Finished retrievals by outcome and accepting source.",
		}, []string{"outcome", "source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Wall time of a whole retrieval.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"outcome"}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_queue_length",
			Help:      "Domains waiting in the batch queue.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_active_workers",
			Help:      "Batch workers currently retrieving.",
		}),
	}

	c.registry.MustRegister(
		c.attempts,
		c.retrievals,
		c.duration,
		c.queueLength,
		c.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveAttempt counts one attempt
func (c *Collector) ObserveAttempt(domain string, attempt entity.Attempt) {
	c.attempts.WithLabelValues(attempt.Source, attempt.Kind.String(), strconv.FormatBool(attempt.Accepted)).Inc()
}

// ObserveRetrieval counts one finished retrieval
func (c *Collector) ObserveRetrieval(domain, outcome, source string, elapsed time.Duration) {
	c.retrievals.WithLabelValues(outcome, source).Inc()
	if elapsed > 0 {
		c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// OnMetricsUpdate mirrors the batch gauges
func (c *Collector) OnMetricsUpdate(m *entity.Metrics) {
	c.queueLength.Set(float64(m.QueueLength))
	c.active.Set(float64(m.ActiveWorkers))
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the server fails
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
