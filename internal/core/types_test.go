package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTick_IsValid(t *testing.T) {
	tests := []struct {
		name string
		tick Tick
		want bool
	}{
		{"positive price", NewTick(0, 10.5), true},
		{"zero price", Tick{Number: 3, Price: decimal.Zero}, false},
		{"negative number", NewTick(-1, 10), false},
		{"negative price", NewTick(2, -1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tick.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTick_String(t *testing.T) {
	tick := NewTick(4, 9.97)
	if tick.String() != "tick #4 @ 9.97" {
		t.Errorf("unexpected string: %s", tick.String())
	}
}

func TestSide_Constants(t *testing.T) {
	if string(SideBuy) != "buy" || string(SideSell) != "sell" {
		t.Errorf("unexpected side values: %s, %s", SideBuy, SideSell)
	}
}
