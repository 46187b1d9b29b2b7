package backtest

import (
	"math"

	"github.com/newthinker/dipper/internal/ledger"
)

// CalculateStats computes performance statistics from the positions of a
// run. Open positions count toward TotalTrades only.
func CalculateStats(positions []ledger.Position) Stats {
	if len(positions) == 0 {
		return Stats{}
	}

	var winning, losing int
	var returns []float64
	var holdTicks int

	for _, p := range positions {
		if p.IsOpen() || p.OpenRate.IsZero() {
			continue
		}
		r := p.Closure.Rate.Sub(p.OpenRate).Div(p.OpenRate).InexactFloat64()
		returns = append(returns, r)
		holdTicks += p.Closure.TickNumber - p.OpenTickNumber
		if r > 0 {
			winning++
		} else {
			losing++
		}
	}

	stats := Stats{
		TotalTrades:   len(positions),
		WinningTrades: winning,
		LosingTrades:  losing,
	}

	closed := len(returns)
	if closed == 0 {
		return stats
	}

	best, worst, sum := returns[0], returns[0], 0.0
	for _, r := range returns {
		sum += r
		best = math.Max(best, r)
		worst = math.Min(worst, r)
	}

	stats.WinRate = float64(winning) / float64(closed) * 100
	stats.AvgReturn = sum / float64(closed) * 100
	stats.BestReturn = best * 100
	stats.WorstReturn = worst * 100
	stats.MaxDrawdown = calculateMaxDrawdown(returns) * 100
	stats.SharpeRatio = calculateSharpeRatio(returns)
	stats.AvgHoldTicks = float64(holdTicks) / float64(closed)
	return stats
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var maxDD float64
	peak := 1.0
	cumulative := 1.0

	for _, r := range returns {
		cumulative *= (1 + r)
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (peak - cumulative) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return per closed position
// with a risk-free rate of 0.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}
