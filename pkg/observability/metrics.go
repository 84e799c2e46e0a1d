package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Plugin lifecycle metrics
	PluginOperationsTotal    *prometheus.CounterVec
	PluginOperationDuration  *prometheus.HistogramVec
	PluginsLoaded            prometheus.Gauge
	PluginsQuarantined       prometheus.Gauge
	ValidationFailuresTotal  *prometheus.CounterVec
	HotReloadsTotal          *prometheus.CounterVec
	ReclamationFailuresTotal prometheus.Counter

	// Discovery metrics
	DiscoveryScansTotal   *prometheus.CounterVec
	DiscoveryScanDuration prometheus.Histogram
	DiscoveryCandidates   prometheus.Gauge

	// Registry metrics
	ProvidersRegistered *prometheus.GaugeVec
	ProviderSelections  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		PluginOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_plugin_operations_total",
				Help: "Total number of plugin lifecycle operations",
			},
			[]string{"kind", "status"},
		),
		PluginOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hub_plugin_operation_duration_seconds",
				Help:    "Plugin lifecycle operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		PluginsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hub_plugins_loaded",
				Help: "Number of plugins currently loaded",
			},
		),
		PluginsQuarantined: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hub_plugins_quarantined",
				Help: "Number of plugin ids currently quarantined",
			},
		),
		ValidationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_validation_failures_total",
				Help: "Total number of plugin validation failures",
			},
			[]string{"plugin"},
		),
		HotReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_hot_reloads_total",
				Help: "Total number of hot reload cycles",
			},
			[]string{"status"},
		),
		ReclamationFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hub_reclamation_failures_total",
				Help: "Total number of boundaries that could not be confirmed reclaimed",
			},
		),

		DiscoveryScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_discovery_scans_total",
				Help: "Total number of discovery scans",
			},
			[]string{"status"},
		),
		DiscoveryScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hub_discovery_scan_duration_seconds",
				Help:    "Discovery scan duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		DiscoveryCandidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hub_discovery_candidates",
				Help: "Number of plugin candidates found by the last scan",
			},
		),

		ProvidersRegistered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hub_providers_registered",
				Help: "Number of providers registered per contract",
			},
			[]string{"contract"},
		),
		ProviderSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hub_provider_selections_total",
				Help: "Total number of provider selections",
			},
			[]string{"contract", "status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.PluginOperationsTotal,
		m.PluginOperationDuration,
		m.PluginsLoaded,
		m.PluginsQuarantined,
		m.ValidationFailuresTotal,
		m.HotReloadsTotal,
		m.ReclamationFailuresTotal,
		m.DiscoveryScansTotal,
		m.DiscoveryScanDuration,
		m.DiscoveryCandidates,
		m.ProvidersRegistered,
		m.ProviderSelections,
	)

	return m
}

// ObservePluginOperation records one finished lifecycle operation.
func (m *Metrics) ObservePluginOperation(kind string, success bool, elapsed time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.PluginOperationsTotal.WithLabelValues(kind, status).Inc()
	m.PluginOperationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// HTTPMetricsMiddleware records request count, duration, and response size
// for every handler it wraps.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.size))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint on a mux
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
