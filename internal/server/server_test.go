package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mbd888/chainrisk/internal/alerts"
	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/config"
	"github.com/mbd888/chainrisk/internal/signal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	seededAddress = "0xcafebabecafebabecafebabecafebabecafebabe"
	cleanAddress  = "0x00000000000000000000000000000000000000c1"
)

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "test",
		LogLevel:         "error",
		DefaultChain:     "ethereum",
		SourceTimeout:    time.Second,
		BreakerThreshold: 5,
		AIProvider:       config.ProviderGemini,
		HistoryProvider:  config.HistoryNone,
	}
}

// newTestServer creates a server backed by the in-memory report store
func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithDrainDelay(0)}, opts...)
	s, err := New(testConfig(), opts...)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

type collectorFunc func(ctx context.Context, address, chain string) *signal.Set

func (f collectorFunc) Collect(ctx context.Context, address, chain string) *signal.Set {
	return f(ctx, address, chain)
}

// saturatedCollector returns maximal evidence for every address
func saturatedCollector() analyzer.Collector {
	return collectorFunc(func(_ context.Context, address, chain string) *signal.Set {
		txs := []signal.Transaction{{Value: decimal.NewFromInt(50)}, {Value: decimal.NewFromInt(60)}}
		inds := make([]signal.LaunderingIndicator, 4)
		return &signal.Set{
			Address:     address,
			Chain:       chain,
			Sanctions:   signal.OK(signal.SanctionsMatch{Matched: true, Detail: &signal.SanctionDetail{Category: "sanctions", Name: "Lazarus Group"}}),
			ScamReports: signal.OK(signal.ScamReports{Count: 7}),
			Behavioral:  signal.OK(signal.BehavioralAnalysis{Indicators: inds, Anomalies: make([]signal.Anomaly, 4)}),
			CrossChain: signal.OK(signal.CrossChainReport{
				TotalChains: 3,
				Analysis:    signal.CrossChainAnalysis{PatternType: "chain_hopping", MoneyLaunderingRisk: "critical"},
			}),
			Transactions: txs,
			History:      signal.Outcome{Status: signal.StatusOK},
		}
	})
}

type recordingSink struct {
	mu  sync.Mutex
	got []*alerts.Alert
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Deliver(_ context.Context, a *alerts.Alert) error {
	r.mu.Lock()
	r.got = append(r.got, a)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) received() []*alerts.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*alerts.Alert(nil), r.got...)
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

// ---------------------------------------------------------------------------
// Analyze endpoint tests
// ---------------------------------------------------------------------------

func TestAnalyze_MissingAddress(t *testing.T) {
	s := newTestServer(t)

	for _, w := range []*httptest.ResponseRecorder{
		do(s, "GET", "/v1/analyze", ""),
		do(s, "POST", "/v1/analyze", `{"blockchain":"ethereum"}`),
	} {
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]any
		decode(t, w, &resp)
		if resp["error"] != "invalid_request" {
			t.Errorf("Expected error 'invalid_request', got %v", resp["error"])
		}
		if resp["message"] != "Address parameter is required" {
			t.Errorf("Unexpected message %v", resp["message"])
		}
	}
}

func TestAnalyze_InvalidInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"malformed address", "GET", "/v1/analyze?address=0x123", ""},
		{"unsupported chain", "GET", "/v1/analyze?address=" + cleanAddress + "&blockchain=solana", ""},
		{"malformed body", "POST", "/v1/analyze", `{"address":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, tt.method, tt.target, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	w := do(s, "GET", "/v1/analyze?address=bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", "")
	var resp map[string]any
	decode(t, w, &resp)
	if msg, _ := resp["message"].(string); !strings.Contains(msg, "EVM address") {
		t.Errorf("Expected the 400 message to name the EVM format, got %q", msg)
	}
}

func TestAnalyze_SeededAddress(t *testing.T) {
	s := newTestServer(t)

	w := do(s, "GET", "/v1/analyze?address="+seededAddress, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp analyzer.Response
	decode(t, w, &resp)
	if resp.Address != seededAddress || resp.Blockchain != "ethereum" {
		t.Errorf("Unexpected subject %s on %s", resp.Address, resp.Blockchain)
	}
	if resp.RiskScore.ScamReports != 5 || resp.RiskScore.Breakdown.ScamReports != 20 {
		t.Errorf("Expected 5 reports worth 20, got %+v", resp.RiskScore)
	}
	if resp.RiskScore.Overall != 20 || resp.RiskScore.Category != "low" {
		t.Errorf("Expected low/20, got %s/%d", resp.RiskScore.Category, resp.RiskScore.Overall)
	}
	if resp.Signals[signal.SourceSanctions].Status != signal.StatusUnavailable {
		t.Errorf("Sanctions without a key should be unavailable, got %+v", resp.Signals[signal.SourceSanctions])
	}
	if resp.BehavioralAnalysis != nil || resp.CrossChainData != nil {
		t.Error("Unavailable AI sources should serialize as null")
	}
	if resp.Alerted {
		t.Error("Score 20 must not alert")
	}
	if len(resp.RiskScore.Explanation) != 6 {
		t.Errorf("Expected 6 explanation lines, got %d", len(resp.RiskScore.Explanation))
	}
}

func TestAnalyze_PostWithChain(t *testing.T) {
	s := newTestServer(t)

	w := do(s, "POST", "/v1/analyze", `{"address":"`+cleanAddress+`","blockchain":"Polygon"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp analyzer.Response
	decode(t, w, &resp)
	if resp.Blockchain != "polygon" {
		t.Errorf("Expected chain polygon, got %s", resp.Blockchain)
	}
	if resp.RiskScore.Overall != 0 {
		t.Errorf("Expected 0, got %d", resp.RiskScore.Overall)
	}
}

func TestAnalyze_HighRiskAlerts(t *testing.T) {
	sink := &recordingSink{}
	s := newTestServer(t, WithCollector(saturatedCollector()), WithSinks(sink))

	w := do(s, "GET", "/v1/analyze?address="+cleanAddress, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp analyzer.Response
	decode(t, w, &resp)
	if resp.RiskScore.Overall != 100 || resp.RiskScore.Category != "critical" {
		t.Errorf("Expected critical/100, got %s/%d", resp.RiskScore.Category, resp.RiskScore.Overall)
	}
	if !resp.Alerted {
		t.Error("Expected alert to be dispatched")
	}
	if resp.RiskScore.SanctionDetails == nil || resp.RiskScore.SanctionDetails.Name != "Lazarus Group" {
		t.Errorf("Expected sanction details, got %+v", resp.RiskScore.SanctionDetails)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.alerts.Wait(ctx); err != nil {
		t.Fatalf("Alert delivery did not finish: %v", err)
	}
	got := sink.received()
	if len(got) != 1 {
		t.Fatalf("Expected exactly one alert, got %d", len(got))
	}
	if got[0].Type != alerts.TypeSanctioned || got[0].Severity != "critical" {
		t.Errorf("Unexpected alert %+v", got[0])
	}
	if !strings.HasPrefix(got[0].Message, "High-risk address detected: ") {
		t.Errorf("Unexpected alert message %q", got[0].Message)
	}
}

func TestAnalyze_InternalFault(t *testing.T) {
	panicking := collectorFunc(func(context.Context, string, string) *signal.Set {
		panic("broken collector")
	})
	s := newTestServer(t, WithCollector(panicking))

	w := do(s, "GET", "/v1/analyze?address="+cleanAddress, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	var resp map[string]any
	decode(t, w, &resp)
	if resp["error"] != "internal_error" || resp["message"] != "Failed to analyze address" {
		t.Errorf("Unexpected body %v", resp)
	}
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(s, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp HealthResponse
	decode(t, w, &resp)
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp.Status)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "sources" {
		t.Errorf("Expected only the sources check without a database, got %+v", resp.Checks)
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(s, "GET", "/health/live", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Server hasn't called Run() so ready is false
	w := do(s, "GET", "/health/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}

	s.ready.Store(true)
	w = do(s, "GET", "/health/ready", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 once ready, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(s, "GET", "/v1/analyze?address="+cleanAddress, "")

	w := do(s, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "chainrisk_assessments_total") {
		t.Error("Expected assessment metrics to be exported")
	}
}

// ---------------------------------------------------------------------------
// Middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	const id = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	req := httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != id {
		t.Errorf("Expected caller request ID to be echoed, got %q", got)
	}

	req = httptest.NewRequest("GET", "/health/live", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got == "" || strings.Contains(got, "not") {
		t.Errorf("Expected a generated request ID, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	w := do(s, "GET", "/health/live", "")
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected nosniff header")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("Expected X-Frame-Options DENY")
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/v1/analyze",
		"POST:/v1/analyze",
		"GET:/v1/alerts/ws",
		"GET:/v1/alerts/stats",
	}

	routeSet := make(map[string]bool)
	for _, route := range s.router.Routes() {
		routeSet[route.Method+":"+route.Path] = true
	}
	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := do(s, "GET", "/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestShutdownWithoutRun(t *testing.T) {
	s := newTestServer(t)
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if s.ready.Load() {
		t.Error("Expected server to be not ready after shutdown")
	}
}
