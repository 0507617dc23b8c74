// Package metrics exposes askhub's Prometheus instrumentation on a private
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "askhub"

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds every collector the server records. A nil *Metrics is valid
// and records nothing, which keeps tests and the CLI free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	searches      *prometheus.CounterVec
	tagSyncRuns   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		storeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Collection accessor operations by collection, operation and result.",
		}, []string{"collection", "op", "result"}),
		storeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Collection accessor operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"collection", "op"}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by backend and result.",
		}, []string{"backend", "result"}),
		tagSyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tag_sync",
			Name:      "runs_total",
			Help:      "Tag count reconciliation runs by result.",
		}, []string{"result"}),
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveStore records one accessor operation that started at start.
func (m *Metrics) ObserveStore(collection, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(collection, op, result(err)).Inc()
	m.storeDuration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}

// ObserveSearch records one search request.
func (m *Metrics) ObserveSearch(backend string, err error) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(backend, result(err)).Inc()
}

// ObserveTagSync records one tag sync run.
func (m *Metrics) ObserveTagSync(err error) {
	if m == nil {
		return
	}
	m.tagSyncRuns.WithLabelValues(result(err)).Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
