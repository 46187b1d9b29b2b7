package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tick is one price observation in a replayed sequence.
type Tick struct {
	Number int
	Price  decimal.Decimal
}

// NewTick builds a tick from a float price. Intended for fixtures and tests.
func NewTick(number int, price float64) Tick {
	return Tick{Number: number, Price: decimal.NewFromFloat(price)}
}

// IsValid checks if the tick has a usable number and price
func (t Tick) IsValid() bool {
	return t.Number >= 0 && t.Price.IsPositive()
}

func (t Tick) String() string {
	return fmt.Sprintf("tick #%d @ %s", t.Number, t.Price.String())
}

// Side is the direction of an execution request
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
