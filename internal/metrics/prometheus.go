// Package metrics records orchestration metrics with Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

const namespace = "orchestrator"

// PrometheusRecorder observes the intent cache, the executor and whole runs.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	cacheLookups    *prometheus.CounterVec
	serviceCalls    *prometheus.CounterVec
	serviceDuration *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the metrics on a fresh registry, together
// with the Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intent_cache_lookups_total",
				Help:      "Intent cache lookups by result",
			},
			[]string{"result"},
		),
		serviceCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_calls_total",
				Help:      "Domain service calls by service and status, recovery included",
			},
			[]string{"service", "status"},
		),
		serviceDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "service_call_duration_seconds",
				Help:      "Duration of domain service calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Processed queries by routing path and outcome",
			},
			[]string{"path", "status"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "End-to-end query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}
}

// ObserveCacheLookup records an intent cache hit or miss.
func (p *PrometheusRecorder) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveServiceCall records one finished service call.
func (p *PrometheusRecorder) ObserveServiceCall(service model.ServiceName, success bool, latency time.Duration) {
	p.serviceCalls.WithLabelValues(string(service), status(success)).Inc()
	p.serviceDuration.WithLabelValues(string(service)).Observe(latency.Seconds())
}

// ObserveRun records one processed query.
func (p *PrometheusRecorder) ObserveRun(path model.RoutePath, success bool, latency time.Duration) {
	p.runsTotal.WithLabelValues(string(path), status(success)).Inc()
	p.runDuration.WithLabelValues(string(path)).Observe(latency.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
