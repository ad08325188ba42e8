package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/sawpanic/signalrun/internal/data/cache"
	"github.com/sawpanic/signalrun/internal/domain/scoring"
)

func newTestServer(t *testing.T) (*Server, *cache.SignalStore) {
	t.Helper()
	store := cache.NewSignalStore(cache.NewMemory(), time.Minute)
	s := NewServer(ServerConfig{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Version:      "test",
	}, nil, store)
	return s, store
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request ID header")
	}

	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("response = %+v", resp)
	}
}

func TestLatestSignalsEndpoint(t *testing.T) {
	s, store := newTestServer(t)

	for _, sym := range []string{"ETHUSD", "BTCUSD"} {
		if err := store.Put(scoring.Signal{Symbol: sym, Direction: scoring.Long, Confidence: 70}); err != nil {
			t.Fatal(err)
		}
	}

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/signals/latest", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp struct {
		Count   int              `json:"count"`
		Signals []scoring.Signal `json:"signals"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if resp.Count != 2 || len(resp.Signals) != 2 {
		t.Fatalf("count = %d, signals = %d, want 2", resp.Count, len(resp.Signals))
	}
	if resp.Signals[0].Symbol != "BTCUSD" {
		t.Errorf("signals not sorted by symbol: %s first", resp.Signals[0].Symbol)
	}
}

func TestSignalEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	if err := store.Put(scoring.Signal{Symbol: "BTCUSD", Direction: scoring.Short, Confidence: 65}); err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/signals/BTCUSD", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/signals/DOGEUSD", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown symbol, want 404", rr.Code)
	}
}

func TestMetricsEndpointExposesFamilies(t *testing.T) {
	s, _ := newTestServer(t)

	s.Metrics().ScansTotal.Inc()
	s.Metrics().SignalsTotal.WithLabelValues("LONG", "trending_strong").Inc()

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	families, err := s.Metrics().Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	scans, ok := byName["signalrun_scans_total"]
	if !ok {
		t.Fatal("signalrun_scans_total not gathered")
	}
	if got := scans.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("scans_total = %f, want 1", got)
	}

	signals, ok := byName["signalrun_signals_total"]
	if !ok {
		t.Fatal("signalrun_signals_total not gathered")
	}
	labels := signals.GetMetric()[0].GetLabel()
	if len(labels) != 2 {
		t.Fatalf("signals_total has %d labels, want 2", len(labels))
	}
}
