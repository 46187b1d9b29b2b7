package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/dipper/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram sends run summaries through the Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, s notifier.Summary) error {
	return t.sendMessage(ctx, formatSummary(s))
}

func formatSummary(s notifier.Summary) string {
	var sb strings.Builder

	emoji := "✅"
	switch {
	case s.Error != "":
		emoji = "❌"
	case s.StopReason == "stop_loss":
		emoji = "🛑"
	}

	fmt.Fprintf(&sb, "%s *Backtest %s* - %s", emoji, s.RunID, s.Status)
	if s.StopReason != "" {
		fmt.Fprintf(&sb, " (%s)", s.StopReason)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "📄 Source: %s, %d ticks\n", s.Source, s.Ticks)
	fmt.Fprintf(&sb, "💰 Realized: $%s\n", s.RealizedProfit.StringFixed(2))
	fmt.Fprintf(&sb, "📊 Total: $%s (%s%%)\n", s.TotalProfit.StringFixed(2), s.TotalProfitPct.StringFixed(2))
	fmt.Fprintf(&sb, "🏦 Capital: $%s\n", s.PeakBuyAmount.StringFixed(2))

	if s.Error != "" {
		fmt.Fprintf(&sb, "⚠️ Error: %s\n", s.Error)
	}

	fmt.Fprintf(&sb, "⏰ Time: %s", s.FinishedAt.Format("2006-01-02 15:04:05"))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
