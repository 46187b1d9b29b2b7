package execution

import (
	"context"

	"github.com/shopspring/decimal"
)

// Dummy fills every request completely at the requested price.
type Dummy struct{}

// NewDummy creates a Dummy client.
func NewDummy() *Dummy {
	return &Dummy{}
}

// Name returns the client name.
func (d *Dummy) Name() string {
	return "dummy"
}

// Buy fills quantity at price.
func (d *Dummy) Buy(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	return Filled(quantity, price), nil
}

// Sell fills quantity at price.
func (d *Dummy) Sell(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	return Filled(quantity, price), nil
}
