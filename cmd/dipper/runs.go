package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/newthinker/dipper/internal/storage/journal"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	runsLimit  int
	runsStatus string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List journaled backtest runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the positions of a journaled run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to list")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "only list runs with this status")

	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), journal.ListFilter{Status: runsStatus, Limit: runsLimit})
	if err != nil {
		return err
	}
	return renderRuns(cmd.OutOrStdout(), runs)
}

func renderRuns(w io.Writer, runs []journal.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Run", "Started", "Status", "Stop", "Ticks", "Closed", "Open", "Realized", "Total", "Capital")
	for _, r := range runs {
		table.Append(
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.StopReason,
			strconv.Itoa(r.Ticks),
			strconv.Itoa(r.ClosedPositions),
			strconv.Itoa(r.OpenPositions),
			r.RealizedProfit.StringFixed(2),
			r.TotalProfit.StringFixed(2),
			r.PeakBuyAmount.StringFixed(2),
		)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering runs: %w", err)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	positions, err := store.Positions(ctx, run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s", run.ID, run.Status)
	if run.StopReason != "" {
		fmt.Fprintf(out, " (%s)", run.StopReason)
	}
	fmt.Fprintf(out, ", source %s, %d ticks\n", run.Source, run.Ticks)
	if run.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", run.ReportPath)
	}
	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", run.Error)
	}

	table := tablewriter.NewWriter(out)
	table.Header("ID", "Amount", "Open rate", "Open tick", "Close rate", "Close tick", "P/L")
	for _, p := range positions {
		closeRate, closeTick, pl := "", "", ""
		if p.Closure != nil {
			closeRate = p.Closure.Rate.String()
			closeTick = strconv.Itoa(p.Closure.TickNumber)
			pl = p.Proceeds().Sub(p.CostBasis()).StringFixed(2)
		}
		table.Append(
			strconv.Itoa(int(p.ID)),
			p.Amount.String(),
			p.OpenRate.String(),
			strconv.Itoa(p.OpenTickNumber),
			closeRate,
			closeTick,
			pl,
		)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering positions: %w", err)
	}
	return nil
}
