package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPosition_Amounts(t *testing.T) {
	p := Position{
		ID:       1,
		Amount:   decimal.RequireFromString("2"),
		OpenRate: decimal.RequireFromString("9.97"),
	}

	if !p.CostBasis().Equal(decimal.RequireFromString("19.94")) {
		t.Errorf("CostBasis() = %s, want 19.94", p.CostBasis())
	}
	if !p.Proceeds().IsZero() {
		t.Errorf("Proceeds() of open position = %s, want 0", p.Proceeds())
	}

	p.Closure = &Closure{Rate: decimal.RequireFromString("10.5"), TickNumber: 4}
	if !p.Proceeds().Equal(decimal.RequireFromString("21")) {
		t.Errorf("Proceeds() = %s, want 21", p.Proceeds())
	}
}

func TestPosition_String(t *testing.T) {
	p := Position{ID: 3, Amount: decimal.NewFromInt(1), OpenRate: decimal.RequireFromString("9.95"), OpenTickNumber: 3}
	if got := p.String(); got != "position #3 1 @ 9.95 (tick 3, open)" {
		t.Errorf("String() = %q", got)
	}
}
