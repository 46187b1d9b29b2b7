package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/dipper/internal/notifier"
	"github.com/shopspring/decimal"
)

func summary() notifier.Summary {
	return notifier.Summary{
		RunID:          "run-1",
		Source:         "rates.csv",
		Status:         "completed",
		StopReason:     "feed_exhausted",
		Ticks:          5,
		RealizedProfit: decimal.RequireFromString("1.58"),
		TotalProfit:    decimal.RequireFromString("1.58"),
		TotalProfitPct: decimal.RequireFromString("5.2807"),
		PeakBuyAmount:  decimal.RequireFromString("29.92"),
		FinishedAt:     time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "chat"); err == nil {
		t.Error("expected error for missing bot_token")
	}
	if _, err := New("token", ""); err == nil {
		t.Error("expected error for missing chat_id")
	}

	tg, err := New("token", "chat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tg.Name() != "telegram" {
		t.Errorf("expected 'telegram', got '%s'", tg.Name())
	}
}

func TestTelegram_Notify(t *testing.T) {
	var receivedPath string
	var receivedPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg, _ := New("test-token", "test-chat")
	tg.baseURL = server.URL

	if err := tg.Notify(context.Background(), summary()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if receivedPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %s", receivedPath)
	}
	if receivedPayload["chat_id"] != "test-chat" {
		t.Errorf("expected chat_id 'test-chat', got %v", receivedPayload["chat_id"])
	}
	text, _ := receivedPayload["text"].(string)
	if !strings.Contains(text, "run-1") || !strings.Contains(text, "$1.58") {
		t.Errorf("message missing run details: %s", text)
	}
}

func TestTelegram_Notify_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	tg, _ := New("bad-token", "chat")
	tg.baseURL = server.URL

	if err := tg.Notify(context.Background(), summary()); err == nil {
		t.Error("expected error for API failure")
	}
}

func TestFormatSummary(t *testing.T) {
	text := formatSummary(summary())

	for _, want := range []string{
		"*Backtest run-1* - completed (feed_exhausted)",
		"rates.csv, 5 ticks",
		"Realized: $1.58",
		"Total: $1.58 (5.28%)",
		"Capital: $29.92",
		"2026-01-02 10:00:00",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Error") {
		t.Error("unexpected error line")
	}
}

func TestFormatSummary_Failure(t *testing.T) {
	s := summary()
	s.Status = "failed"
	s.Error = "disk on fire"

	text := formatSummary(s)
	if !strings.HasPrefix(text, "❌") {
		t.Errorf("expected failure emoji, got: %s", text)
	}
	if !strings.Contains(text, "Error: disk on fire") {
		t.Errorf("expected error line in: %s", text)
	}
}
