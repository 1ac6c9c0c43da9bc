package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector of the service. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Speech-to-text
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram

	// Optimization
	PlatformOutcomes     *prometheus.CounterVec
	PlatformRetries      *prometheus.CounterVec
	OptimizationDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepost_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicepost_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		TranscriptionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepost_transcriptions_total",
			Help: "Speech-to-text requests by result",
		}, []string{"result"}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepost_transcription_duration_seconds",
			Help:    "Speech-to-text provider latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		}),

		PlatformOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepost_platform_optimizations_total",
			Help: "Per-platform optimization results (success or fallback)",
		}, []string{"platform", "result"}),
		PlatformRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicepost_platform_retries_total",
			Help: "Rewrite attempts beyond the first, per platform",
		}, []string{"platform"}),
		OptimizationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicepost_optimization_duration_seconds",
			Help:    "Duration of a full multi-platform optimization run",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RecordTranscription(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.WithLabelValues(result(ok)).Inc()
	m.TranscriptionDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordPlatform(platform string, ok bool, attempts int) {
	if m == nil {
		return
	}
	m.PlatformOutcomes.WithLabelValues(platform, result(ok)).Inc()
	if attempts > 1 {
		m.PlatformRetries.WithLabelValues(platform).Add(float64(attempts - 1))
	}
}

func (m *Metrics) RecordOptimization(d time.Duration) {
	if m == nil {
		return
	}
	m.OptimizationDuration.Observe(d.Seconds())
}

// Middleware records count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RecordHTTPRequest(r.Method, route, status, time.Since(start))
	})
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "fallback"
}
