// Package report aggregates a finished run into profitability figures.
package report

import (
	"github.com/newthinker/dipper/internal/ledger"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Amount pairs a quote-currency value with the quantity behind it.
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Report holds the results of a run. Percentages are relative to the peak
// capital committed (Peak.BuyAmount).
type Report struct {
	// Turnover is the cost basis of every position, closed or still open.
	Turnover Amount `json:"turnover"`

	RealizedBuy       Amount          `json:"realized_buy"`
	RealizedSell      Amount          `json:"realized_sell"`
	RealizedProfit    decimal.Decimal `json:"realized_profit"`
	RealizedProfitPct decimal.Decimal `json:"realized_profit_pct"`

	// Liquidation values the open positions at LastPrice.
	Liquidation    Amount          `json:"liquidation"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	TotalProfitPct decimal.Decimal `json:"total_profit_pct"`

	// Peak is the largest exposure seen, i.e. the capital the run required.
	Peak      ledger.OnHold   `json:"peak"`
	LastPrice decimal.Decimal `json:"last_price"`

	OpenPositions   int `json:"open_positions"`
	ClosedPositions int `json:"closed_positions"`
}

// Build computes a report from the final ledger state, the retained peak
// snapshot and the last observed price. It does not modify the ledger.
func Build(l *ledger.Ledger, peak ledger.OnHold, lastPrice decimal.Decimal) Report {
	realizedBuy := Amount{Value: l.ClosedBuyAmount(), Quantity: l.ClosedQuantity()}
	realizedSell := Amount{Value: l.ClosedSellAmount(), Quantity: l.ClosedQuantity()}
	liquidation := Amount{Value: l.OpenValueAt(lastPrice), Quantity: l.OpenQuantity()}
	turnover := Amount{
		Value:    realizedBuy.Value.Add(l.OpenCostBasis()),
		Quantity: realizedBuy.Quantity.Add(l.OpenQuantity()),
	}

	realizedProfit := realizedSell.Value.Sub(realizedBuy.Value)
	totalProfit := realizedSell.Value.Add(liquidation.Value).Sub(turnover.Value)

	return Report{
		Turnover:          turnover,
		RealizedBuy:       realizedBuy,
		RealizedSell:      realizedSell,
		RealizedProfit:    realizedProfit,
		RealizedProfitPct: percentOf(realizedProfit, peak.BuyAmount),
		Liquidation:       liquidation,
		TotalProfit:       totalProfit,
		TotalProfitPct:    percentOf(totalProfit, peak.BuyAmount),
		Peak:              peak,
		LastPrice:         lastPrice,
		OpenPositions:     l.OpenCount(),
		ClosedPositions:   l.ClosedCount(),
	}
}

// percentOf returns value/base*100, or zero when base is zero.
func percentOf(value, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return value.Div(base).Mul(hundred)
}
