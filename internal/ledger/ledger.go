package ledger

import (
	"fmt"
	"slices"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
)

// Ledger owns the open and closed position collections. A position lives in
// exactly one of them; Close is the only move between the two.
//
// Ledger is not safe for concurrent use.
type Ledger struct {
	open   []*Position // open order
	closed []*Position // close order
	index  map[PositionID]*Position
	nextID PositionID
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		index:  make(map[PositionID]*Position),
		nextID: 1,
	}
}

// Open appends a new open position and returns a copy of it.
// amount and rate must be positive; the caller validates them.
func (l *Ledger) Open(amount, rate decimal.Decimal, tickNumber int) Position {
	pos := &Position{
		ID:             l.nextID,
		Amount:         amount,
		OpenRate:       rate,
		OpenTickNumber: tickNumber,
	}
	l.nextID++
	l.open = append(l.open, pos)
	l.index[pos.ID] = pos
	return *pos
}

// Close moves an open position to the closed collection, stamping its close
// rate and tick. Closing an unknown or already closed position returns
// core.ErrInvalidState.
func (l *Ledger) Close(id PositionID, rate decimal.Decimal, tickNumber int) (Position, error) {
	pos, ok := l.index[id]
	if !ok {
		return Position{}, core.WrapError(core.ErrInvalidState, fmt.Errorf("unknown position %d", id))
	}
	if !pos.IsOpen() {
		return Position{}, core.WrapError(core.ErrInvalidState, fmt.Errorf("position %d already closed", id))
	}

	i := slices.Index(l.open, pos)
	l.open = slices.Delete(l.open, i, i+1)

	pos.Closure = &Closure{Rate: rate, TickNumber: tickNumber}
	l.closed = append(l.closed, pos)
	return pos.clone(), nil
}

// OpenPositions returns copies of the open positions in open order.
func (l *Ledger) OpenPositions() []Position {
	return copyAll(l.open)
}

// ClosedPositions returns copies of the closed positions in close order.
func (l *Ledger) ClosedPositions() []Position {
	return copyAll(l.closed)
}

// OpenSortedByRate returns the open positions ordered by ascending open rate,
// ties kept in open order. The result is a snapshot: closing positions while
// iterating it does not affect the iteration.
func (l *Ledger) OpenSortedByRate() []Position {
	out := copyAll(l.open)
	slices.SortStableFunc(out, func(a, b Position) int {
		return a.OpenRate.Cmp(b.OpenRate)
	})
	return out
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int { return len(l.open) }

// ClosedCount returns the number of closed positions.
func (l *Ledger) ClosedCount() int { return len(l.closed) }

// OpenQuantity is the total amount held in open positions.
func (l *Ledger) OpenQuantity() decimal.Decimal {
	return sum(l.open, func(p *Position) decimal.Decimal { return p.Amount })
}

// OpenCostBasis is the sum of OpenRate*Amount over open positions.
func (l *Ledger) OpenCostBasis() decimal.Decimal {
	return sum(l.open, func(p *Position) decimal.Decimal { return p.CostBasis() })
}

// ClosedQuantity is the total amount of closed positions.
func (l *Ledger) ClosedQuantity() decimal.Decimal {
	return sum(l.closed, func(p *Position) decimal.Decimal { return p.Amount })
}

// ClosedBuyAmount is the cost basis of closed positions.
func (l *Ledger) ClosedBuyAmount() decimal.Decimal {
	return sum(l.closed, func(p *Position) decimal.Decimal { return p.CostBasis() })
}

// ClosedSellAmount is the realized proceeds of closed positions.
func (l *Ledger) ClosedSellAmount() decimal.Decimal {
	return sum(l.closed, func(p *Position) decimal.Decimal { return p.Proceeds() })
}

// OpenValueAt is the liquidation value of open positions at price.
func (l *Ledger) OpenValueAt(price decimal.Decimal) decimal.Decimal {
	return sum(l.open, func(p *Position) decimal.Decimal { return p.ValueAt(price) })
}

// OnHold snapshots the current open exposure observed at tick.
func (l *Ledger) OnHold(tick core.Tick) OnHold {
	return OnHold{
		Quantity:   l.OpenQuantity(),
		BuyAmount:  l.OpenCostBasis(),
		TickNumber: tick.Number,
		TickRate:   tick.Price,
	}
}

func copyAll(in []*Position) []Position {
	out := make([]Position, len(in))
	for i, p := range in {
		out[i] = p.clone()
	}
	return out
}

func sum(in []*Position, f func(*Position) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range in {
		total = total.Add(f(p))
	}
	return total
}
