package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Render prints the report as a table.
func Render(w io.Writer, r Report) error {
	fmt.Fprintln(w, "=== Backtest Results ===")

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Amount", "Quantity", "Return")

	table.Append("Turnover", money(r.Turnover.Value), qty(r.Turnover.Quantity), "")
	table.Append("Realized buys", money(r.RealizedBuy.Value), qty(r.RealizedBuy.Quantity), "")
	table.Append("Realized sells", money(r.RealizedSell.Value), qty(r.RealizedSell.Quantity), "")
	table.Append("Realized profit", money(r.RealizedProfit), "", pct(r.RealizedProfitPct))
	table.Append("Liquidation @ "+r.LastPrice.String(), money(r.Liquidation.Value), qty(r.Liquidation.Quantity), "")
	table.Append("Total profit", money(r.TotalProfit), "", pct(r.TotalProfitPct))
	table.Append("Required capital", money(r.Peak.BuyAmount), qty(r.Peak.Quantity),
		fmt.Sprintf("tick %d @ %s", r.Peak.TickNumber, r.Peak.TickRate))

	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	fmt.Fprintf(w, "Positions: %d closed, %d open\n", r.ClosedPositions, r.OpenPositions)
	return nil
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

func qty(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func pct(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}
