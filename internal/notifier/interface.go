// Package notifier announces finished backtest runs.
package notifier

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the outcome of one run as sent to notifiers.
type Summary struct {
	RunID          string          `json:"run_id"`
	Source         string          `json:"source"`
	Status         string          `json:"status"`
	StopReason     string          `json:"stop_reason,omitempty"`
	Ticks          int             `json:"ticks"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	TotalProfitPct decimal.Decimal `json:"total_profit_pct"`
	PeakBuyAmount  decimal.Decimal `json:"peak_buy_amount"`
	ReportPath     string          `json:"report_path,omitempty"`
	Error          string          `json:"error,omitempty"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// Notifier delivers run summaries.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify sends one run summary.
	Notify(ctx context.Context, s Summary) error
}
