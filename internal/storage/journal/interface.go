// Package journal records finished backtest runs.
package journal

import (
	"context"
	"time"

	"github.com/newthinker/dipper/internal/ledger"
	"github.com/shopspring/decimal"
)

// Run summarizes one backtest.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string // feed path or other tick origin
	Client     string // execution client name
	Status     string
	StopReason string
	Ticks      int
	LastTick   int
	LastPrice  decimal.Decimal

	OpenPositions   int
	ClosedPositions int
	RealizedProfit  decimal.Decimal
	TotalProfit     decimal.Decimal
	PeakBuyAmount   decimal.Decimal
	ReportPath      string
	Error           string
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store defines the interface for run persistence.
type Store interface {
	// SaveRun persists a run with its positions, replacing any run with
	// the same ID.
	SaveRun(ctx context.Context, run Run, positions []ledger.Position) error

	// GetRun retrieves a run by its ID.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs matching the filter, newest first.
	ListRuns(ctx context.Context, filter ListFilter) ([]Run, error)

	// Positions returns the positions recorded for a run in ID order.
	Positions(ctx context.Context, runID string) ([]ledger.Position, error)

	// Close releases the store.
	Close() error
}

// ListFilter defines criteria for listing runs.
type ListFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (f ListFilter) matches(run Run) bool {
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && run.StartedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && run.StartedAt.After(f.To) {
		return false
	}
	return true
}
