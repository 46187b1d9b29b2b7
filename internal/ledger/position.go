// Package ledger tracks simulated positions through their open/closed lifecycle.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PositionID identifies a position within one ledger.
type PositionID int

// Closure records how a position was closed.
type Closure struct {
	Rate       decimal.Decimal `json:"rate"`
	TickNumber int             `json:"tick_number"`
}

// Position is one simulated lot. Amount is fixed when the lot opens.
type Position struct {
	ID             PositionID      `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	OpenRate       decimal.Decimal `json:"open_rate"`
	OpenTickNumber int             `json:"open_tick_number"`
	// Closure is nil while the position is open.
	Closure *Closure `json:"closure,omitempty"`
}

// IsOpen returns true until the position has been closed.
func (p Position) IsOpen() bool {
	return p.Closure == nil
}

// CostBasis returns OpenRate * Amount.
func (p Position) CostBasis() decimal.Decimal {
	return p.OpenRate.Mul(p.Amount)
}

// Proceeds returns CloseRate * Amount, or zero for an open position.
func (p Position) Proceeds() decimal.Decimal {
	if p.Closure == nil {
		return decimal.Zero
	}
	return p.Closure.Rate.Mul(p.Amount)
}

// ValueAt returns the position's value at the given price.
func (p Position) ValueAt(price decimal.Decimal) decimal.Decimal {
	return price.Mul(p.Amount)
}

// clone copies the position including its closure.
func (p *Position) clone() Position {
	out := *p
	if p.Closure != nil {
		c := *p.Closure
		out.Closure = &c
	}
	return out
}

func (p Position) String() string {
	if p.Closure == nil {
		return fmt.Sprintf("position #%d %s @ %s (tick %d, open)",
			p.ID, p.Amount, p.OpenRate, p.OpenTickNumber)
	}
	return fmt.Sprintf("position #%d %s @ %s (tick %d) -> %s (tick %d)",
		p.ID, p.Amount, p.OpenRate, p.OpenTickNumber, p.Closure.Rate, p.Closure.TickNumber)
}

// OnHold is a point-in-time snapshot of open exposure.
type OnHold struct {
	Quantity   decimal.Decimal `json:"quantity"`
	BuyAmount  decimal.Decimal `json:"buy_amount"`
	TickNumber int             `json:"tick_number"`
	TickRate   decimal.Decimal `json:"tick_rate"`
}
