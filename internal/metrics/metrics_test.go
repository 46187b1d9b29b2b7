package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	// Should have go runtime metrics at minimum
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_RecordTick(t *testing.T) {
	reg := NewRegistry()

	reg.RecordTick(9.97, 19.97, 2)
	reg.RecordTick(9.95, 29.92, 3)

	ticks := findFamily(t, reg, "dipper_ticks_processed_total")
	if ticks == nil {
		t.Fatal("expected dipper_ticks_processed_total metric")
	}
	if got := ticks.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("expected 2 ticks, got %v", got)
	}

	gauges := map[string]float64{
		"dipper_last_price":     9.95,
		"dipper_peak_exposure":  29.92,
		"dipper_positions_open": 3,
	}
	for name, want := range gauges {
		mf := findFamily(t, reg, name)
		if mf == nil {
			t.Errorf("expected %s metric", name)
			continue
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestRegistry_RecordOrder(t *testing.T) {
	reg := NewRegistry()

	reg.RecordOrder("buy", "filled")
	reg.RecordOrder("buy", "filled")
	reg.RecordOrder("sell", "rejected")

	mf := findFamily(t, reg, "dipper_orders_total")
	if mf == nil {
		t.Fatal("expected dipper_orders_total metric")
	}

	counts := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		var side, outcome string
		for _, label := range m.GetLabel() {
			switch label.GetName() {
			case "side":
				side = label.GetValue()
			case "outcome":
				outcome = label.GetValue()
			}
		}
		counts[side+"/"+outcome] = m.GetCounter().GetValue()
	}

	if counts["buy/filled"] != 2 {
		t.Errorf("expected 2 filled buys, got %v", counts["buy/filled"])
	}
	if counts["sell/rejected"] != 1 {
		t.Errorf("expected 1 rejected sell, got %v", counts["sell/rejected"])
	}
}

func TestRegistry_RecordRun(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRun("stop_loss", 0.2)

	if findFamily(t, reg, "dipper_runs_total") == nil {
		t.Error("expected dipper_runs_total metric")
	}
	mf := findFamily(t, reg, "dipper_run_duration_seconds")
	if mf == nil {
		t.Fatal("expected dipper_run_duration_seconds metric")
	}
	if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("expected 1 sample, got %d", got)
	}
}

func TestStatusToString(t *testing.T) {
	tests := []struct {
		status   int
		expected string
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
		t.Run(tt.expected, func(t *testing.T) {
			if got := statusToString(tt.status); got != tt.expected {
				t.Errorf("statusToString(%d) = %s, want %s", tt.status, got, tt.expected)
			}
		})
	}
}

func TestRegistry_RecordBalances(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBalances(9970.08, 3)

	gauges := map[string]float64{
		"dipper_paper_quote_balance": 9970.08,
		"dipper_paper_base_balance":  3,
	}
	for name, want := range gauges {
		mf := findFamily(t, reg, name)
		if mf == nil {
			t.Fatalf("expected %s metric", name)
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}
