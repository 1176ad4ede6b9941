package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestObserveSignal(t *testing.T) {
	before := testutil.ToFloat64(SignalFetchTotal.WithLabelValues("sanctions", "failed"))
	ObserveSignal("sanctions", "failed", 120*time.Millisecond)
	after := testutil.ToFloat64(SignalFetchTotal.WithLabelValues("sanctions", "failed"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestObserveAssessment(t *testing.T) {
	before := testutil.ToFloat64(AssessmentsTotal.WithLabelValues("high"))
	ObserveAssessment("high", 58)
	if got := testutil.ToFloat64(AssessmentsTotal.WithLabelValues("high")) - before; got != 1 {
		t.Errorf("expected 1 new high assessment, got %v", got)
	}
}

func TestObserveAssessment_ScoreHistogram(t *testing.T) {
	read := func() *dto.Histogram {
		m := &dto.Metric{}
		if err := RiskScore.Write(m); err != nil {
			t.Fatalf("write histogram: %v", err)
		}
		return m.Histogram
	}
	before := read()
	ObserveAssessment("critical", 95)
	after := read()

	if got := after.GetSampleCount() - before.GetSampleCount(); got != 1 {
		t.Errorf("expected 1 new sample, got %d", got)
	}
	if got := after.GetSampleSum() - before.GetSampleSum(); got != 95 {
		t.Errorf("expected sample sum to grow by 95, got %v", got)
	}
}

func TestObserveSignal_DurationHistogram(t *testing.T) {
	SignalFetchDuration.Reset()
	ObserveSignal("history", "ok", 40*time.Millisecond)

	ch := make(chan prometheus.Metric, 10)
	SignalFetchDuration.Collect(ch)
	close(ch)

	found := false
	for metric := range ch {
		m := &dto.Metric{}
		_ = metric.Write(m)
		if m.Histogram != nil && m.Histogram.GetSampleCount() == 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected duration histogram with 1 sample")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	ObserveSignal("cross_chain", "ok", time.Millisecond)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{
		"chainrisk_active_websocket_clients",
		"chainrisk_signal_fetch_total",
		"chainrisk_signal_fetch_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestMiddleware_RecordsMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test", "2xx"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test", "2xx")) - before; got != 1 {
		t.Errorf("expected one recorded request, got %v", got)
	}
}
