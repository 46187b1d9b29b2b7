package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestScrapeMiddleware(t *testing.T) {
	reg := NewRegistry()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	wrapped := ScrapeMiddleware(reg)(handler)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if findFamily(t, reg, "dipper_scrapes_total") == nil {
		t.Error("expected dipper_scrapes_total to be recorded")
	}
	if findFamily(t, reg, "dipper_scrape_duration_seconds") == nil {
		t.Error("expected dipper_scrape_duration_seconds to be recorded")
	}
}

func TestScrapeMiddleware_TracksInFlight(t *testing.T) {
	reg := NewRegistry()

	inFlightDuringRequest := float64(-1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mf := findFamily(t, reg, "dipper_scrapes_in_flight"); mf != nil {
			inFlightDuringRequest = mf.GetMetric()[0].GetGauge().GetValue()
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := ScrapeMiddleware(reg)(handler)
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/metrics", nil))

	if inFlightDuringRequest != 1 {
		t.Errorf("expected in-flight to be 1 during request, got %v", inFlightDuringRequest)
	}

	mf := findFamily(t, reg, "dipper_scrapes_in_flight")
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Errorf("expected in-flight to be 0 after request, got %v", got)
	}
}

func TestScrapeMiddleware_CapturesStatusCode(t *testing.T) {
	reg := NewRegistry()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	wrapped := ScrapeMiddleware(reg)(handler)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}

	mf := findFamily(t, reg, "dipper_scrapes_total")
	for _, m := range mf.GetMetric() {
		for _, label := range m.GetLabel() {
			if label.GetName() == "status" && label.GetValue() != "5xx" {
				t.Errorf("expected status label 5xx, got %s", label.GetValue())
			}
		}
	}
}

func TestHandler_ExposesBacktestMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.RecordOrder("buy", "filled")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `dipper_orders_total{outcome="filled",side="buy"} 1`) {
		t.Errorf("expected orders counter in exposition, got:\n%s", body)
	}
}
