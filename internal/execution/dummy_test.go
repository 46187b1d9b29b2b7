package execution

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDummy_ImplementsClient(t *testing.T) {
	var _ Client = (*Dummy)(nil)
}

func TestDummy_FillsAtRequestedPrice(t *testing.T) {
	d := NewDummy()
	qty := decimal.RequireFromString("1.5")
	price := decimal.RequireFromString("10")

	buy, err := d.Buy(context.Background(), qty, price)
	if err != nil {
		t.Fatalf("Buy failed: %v", err)
	}
	if !buy.IsFilled() {
		t.Fatalf("expected filled buy, got %s", buy.Status)
	}
	if !buy.ExecutedQty.Equal(qty) {
		t.Errorf("expected executed qty %s, got %s", qty, buy.ExecutedQty)
	}
	if !buy.CummulativeQuoteQty.Equal(decimal.RequireFromString("15")) {
		t.Errorf("expected quote qty 15, got %s", buy.CummulativeQuoteQty)
	}

	sell, err := d.Sell(context.Background(), qty, price)
	if err != nil {
		t.Fatalf("Sell failed: %v", err)
	}
	if !sell.Price().Equal(price) {
		t.Errorf("expected sell price %s, got %s", price, sell.Price())
	}
}
