package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk portal.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	indexBuilds     prometheus.Counter
	indexCodes      prometheus.Gauge
	indexDuration   prometheus.Histogram
	searches        *prometheus.CounterVec
	bulkLines       *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry, metrik HTTP dan metrik katalog.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "b2b_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "b2b_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	indexBuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "b2b_catalog_index_builds_total",
		Help: "Jumlah pembangunan ulang indeks kode katalog.",
	})
	indexCodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "b2b_catalog_index_codes",
		Help: "Jumlah kode SKU/UPC pada indeks terakhir.",
	})
	indexDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "b2b_catalog_index_build_duration_seconds",
		Help:    "Durasi pembangunan indeks kode katalog.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	searches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "b2b_catalog_searches_total",
		Help: "Jumlah pencarian katalog berdasarkan jenis kecocokan teratas.",
	}, []string{"outcome"})
	bulkLines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "b2b_bulk_order_lines_total",
		Help: "Jumlah baris pesanan massal berdasarkan hasil resolusi.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, indexBuilds, indexCodes, indexDuration, searches, bulkLines)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		indexBuilds:     indexBuilds,
		indexCodes:      indexCodes,
		indexDuration:   indexDuration,
		searches:        searches,
		bulkLines:       bulkLines,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveIndexBuild mencatat satu pembangunan indeks kode.
func (m *Metrics) ObserveIndexBuild(codes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.indexBuilds.Inc()
	m.indexCodes.Set(float64(codes))
	m.indexDuration.Observe(duration.Seconds())
}

// ObserveSearch mencatat hasil pencarian; outcome berisi jenis kecocokan atau "miss".
func (m *Metrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// ObserveBulkResolution mencatat jumlah kode yang ditemukan dan tidak ditemukan.
func (m *Metrics) ObserveBulkResolution(resolved, notFound int) {
	if m == nil {
		return
	}
	m.bulkLines.WithLabelValues("resolved").Add(float64(resolved))
	m.bulkLines.WithLabelValues("not_found").Add(float64(notFound))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
