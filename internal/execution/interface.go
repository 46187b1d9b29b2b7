// Package execution turns buy/sell intents into fills.
package execution

import (
	"context"
	"fmt"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
)

// Status is the exchange-reported state of an execution request.
type Status string

const (
	// StatusFilled means the request was matched completely.
	StatusFilled Status = "FILLED"
	// StatusPartiallyFilled means only part of the quantity was matched.
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	// StatusRejected means nothing was matched.
	StatusRejected Status = "REJECTED"
)

// Fill is the outcome of a buy or sell request. Field names follow the
// exchange order response they model.
type Fill struct {
	Status              Status          `json:"status"`
	ExecutedQty         decimal.Decimal `json:"executedQty"`
	CummulativeQuoteQty decimal.Decimal `json:"cummulativeQuoteQty"`
	// Reason explains a rejection.
	Reason string `json:"reason,omitempty"`
}

// IsFilled reports whether the fill can be booked. A nil fill, any status
// other than FILLED, or a non-positive executed quantity count as rejection.
func (f *Fill) IsFilled() bool {
	return f != nil && f.Status == StatusFilled && f.ExecutedQty.IsPositive()
}

// Price returns the effective fill price, CummulativeQuoteQty / ExecutedQty.
// Only meaningful when IsFilled is true.
func (f *Fill) Price() decimal.Decimal {
	if f == nil || !f.ExecutedQty.IsPositive() {
		return decimal.Zero
	}
	return f.CummulativeQuoteQty.Div(f.ExecutedQty)
}

// Err describes why the fill cannot be booked as core.ErrExecutionRejected,
// or returns nil for a booked fill.
func (f *Fill) Err() error {
	switch {
	case f.IsFilled():
		return nil
	case f == nil:
		return core.WrapError(core.ErrExecutionRejected, fmt.Errorf("no response"))
	case f.Reason != "":
		return core.WrapError(core.ErrExecutionRejected, fmt.Errorf("%s: %s", f.Status, f.Reason))
	default:
		return core.WrapError(core.ErrExecutionRejected, fmt.Errorf("status %s, executed %s", f.Status, f.ExecutedQty))
	}
}

// Filled builds a complete fill of quantity at price.
func Filled(quantity, price decimal.Decimal) *Fill {
	return &Fill{
		Status:              StatusFilled,
		ExecutedQty:         quantity,
		CummulativeQuoteQty: quantity.Mul(price),
	}
}

// Rejected builds a rejected fill with a reason.
func Rejected(reason string) *Fill {
	return &Fill{Status: StatusRejected, Reason: reason}
}

// Client executes buy and sell requests. Implementations may block on I/O;
// they should honour ctx and report failures either as an error or as a
// non-FILLED fill.
type Client interface {
	// Name returns the backend identifier (e.g., "dummy", "paper").
	Name() string
	Buy(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error)
	Sell(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error)
}
