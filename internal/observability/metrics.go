package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate by route template. Watch for: drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Actions include both provider calls, so expect seconds, not millis.
	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInFlight prometheus.Gauge

	// Provider call rate per endpoint ("weather", "onecall") and status label.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Provider latency per endpoint. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Provider failures by endpoint and error category.
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Store slot operations ("restore", "persist") by result ("ok", "miss", "error").
	StoreOperationsTotal *prometheus.CounterVec

	StoreOperationDuration *prometheus.HistogramVec

	// Pipeline runs by kind ("init", "full", "unit") and result.
	RefreshesTotal *prometheus.CounterVec

	// Action requests denied by the rate limiter.
	RateLimitDeniedTotal prometheus.Counter

	snapshotGaugeOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "OpenWeatherMap API failures by error category",
		},
		[]string{"endpoint", "category"},
	)
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeOperationsTotal",
			Help: "Snapshot slot reads and writes by result",
		},
		[]string{"operation", "result"},
	)
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storeOperationDurationSeconds",
			Help:    "Snapshot slot operation latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refreshesTotal",
			Help: "Acquisition pipeline runs by kind and result",
		},
		[]string{"kind", "result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of action requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		StoreOperationsTotal, StoreOperationDuration,
		RefreshesTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterSnapshotStateGauge exposes the store state (0 empty, 1 partial, 2 ready).
// Only the first call registers; later calls are ignored.
func RegisterSnapshotStateGauge(state func() float64) {
	snapshotGaugeOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "snapshotState",
				Help: "Weather store state: 0 empty, 1 partially loaded, 2 ready",
			},
			state,
		))
	})
}

// RecordRefresh counts one pipeline run.
func RecordRefresh(kind string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	RefreshesTotal.WithLabelValues(kind, result).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
