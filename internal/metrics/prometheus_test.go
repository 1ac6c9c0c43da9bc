package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPlatform(t *testing.T) {
	m := NewMetrics()

	m.RecordPlatform("twitter", true, 1)
	m.RecordPlatform("twitter", false, 3)

	if got := testutil.ToFloat64(m.PlatformOutcomes.WithLabelValues("twitter", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PlatformOutcomes.WithLabelValues("twitter", "fallback")); got != 1 {
		t.Errorf("fallback count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PlatformRetries.WithLabelValues("twitter")); got != 2 {
		t.Errorf("retries = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordPlatform("reddit", true, 1)
	m.RecordTranscription(false, time.Second)
	m.RecordOptimization(time.Second)
	m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/history", "418")); got != 1 {
		t.Errorf("request count = %v, want 1", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "voicepost_http_requests_total") {
		t.Error("metrics output does not expose voicepost_http_requests_total")
	}
}
