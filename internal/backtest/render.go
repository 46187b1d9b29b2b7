package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/newthinker/dipper/internal/report"
	"github.com/olekukonko/tablewriter"
)

// Render prints the run header, the profitability report and the
// per-position statistics.
func Render(w io.Writer, result *Result) error {
	fmt.Fprintf(w, "Run %s (%s via %s)\n", result.RunID, result.Source, result.Client)
	fmt.Fprintf(w, "Status: %s", result.Status)
	if result.StopReason != "" {
		fmt.Fprintf(w, " (%s)", result.StopReason)
	}
	fmt.Fprintf(w, ", %d ticks, last tick %d, %s\n", result.Ticks, result.LastTick, result.Duration().Round(time.Millisecond))
	if a := result.Account; a != nil {
		fmt.Fprintf(w, "Paper account: quote %s, base %s (%d fills, %d rejected)\n",
			a.Quote.StringFixed(2), a.Base.String(), a.Fills, a.Rejected)
	}
	fmt.Fprintln(w)

	if err := report.Render(w, result.Report); err != nil {
		return err
	}

	s := result.Stats
	if s.WinningTrades+s.LosingTrades == 0 {
		return nil
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header("Statistic", "Value")
	table.Append("Closed positions", fmt.Sprintf("%d (%d won, %d lost)", s.WinningTrades+s.LosingTrades, s.WinningTrades, s.LosingTrades))
	table.Append("Win rate", fmt.Sprintf("%.2f%%", s.WinRate))
	table.Append("Average return", fmt.Sprintf("%.2f%%", s.AvgReturn))
	table.Append("Best / worst", fmt.Sprintf("%.2f%% / %.2f%%", s.BestReturn, s.WorstReturn))
	table.Append("Max drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown))
	table.Append("Sharpe ratio", fmt.Sprintf("%.2f", s.SharpeRatio))
	table.Append("Average hold", fmt.Sprintf("%.1f ticks", s.AvgHoldTicks))
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering stats: %w", err)
	}
	return nil
}
