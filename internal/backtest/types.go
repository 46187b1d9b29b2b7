// Package backtest replays a tick feed through the strategy engine and
// collects the outcome of the run.
package backtest

import (
	"time"

	"github.com/newthinker/dipper/internal/execution"
	"github.com/newthinker/dipper/internal/ledger"
	"github.com/newthinker/dipper/internal/report"
	"github.com/newthinker/dipper/internal/strategy"
)

// Status is the final state of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// StopFeedExhausted is recorded when the feed ran out before the engine
// asked to stop.
const StopFeedExhausted = "feed_exhausted"

// Result holds the complete backtest output
type Result struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source"`
	Client     string          `json:"client"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Status     Status          `json:"status"`
	StopReason string          `json:"stop_reason,omitempty"`
	Ticks      int             `json:"ticks"`
	LastTick   int             `json:"last_tick"`
	Strategy   strategy.Config `json:"strategy"`

	Report    report.Report     `json:"report"`
	Stats     Stats             `json:"stats"`
	Positions []ledger.Position `json:"positions"`
	// Account is the paper client's final state, when trading on paper.
	Account *execution.PaperStats `json:"account,omitempty"`

	ReportPath string `json:"report_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Stats holds per-position performance statistics
type Stats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // Percentage of profitable closed positions
	AvgReturn     float64 `json:"avg_return"`   // Mean closed position return, percent
	BestReturn    float64 `json:"best_return"`  // percent
	WorstReturn   float64 `json:"worst_return"` // percent
	MaxDrawdown   float64 `json:"max_drawdown"` // Largest peak-to-trough decline of compounded returns, percent
	SharpeRatio   float64 `json:"sharpe_ratio"` // Mean over standard deviation of returns
	AvgHoldTicks  float64 `json:"avg_hold_ticks"`
}
