// Package feed supplies ordered ticks to the backtest runner.
package feed

import (
	"context"

	"github.com/newthinker/dipper/internal/core"
)

// Feed produces ticks in order. Next returns core.ErrFeedExhausted once the
// sequence ends.
type Feed interface {
	Next(ctx context.Context) (core.Tick, error)
}

// Slice replays an in-memory sequence of ticks.
type Slice struct {
	ticks []core.Tick
	pos   int
}

// NewSlice creates a feed over ticks.
func NewSlice(ticks []core.Tick) *Slice {
	return &Slice{ticks: ticks}
}

// FromPrices numbers prices from 0 and wraps them in a Slice feed.
func FromPrices(prices ...float64) *Slice {
	ticks := make([]core.Tick, len(prices))
	for i, p := range prices {
		ticks[i] = core.NewTick(i, p)
	}
	return NewSlice(ticks)
}

// Next returns the next tick.
func (s *Slice) Next(ctx context.Context) (core.Tick, error) {
	if err := ctx.Err(); err != nil {
		return core.Tick{}, err
	}
	if s.pos >= len(s.ticks) {
		return core.Tick{}, core.ErrFeedExhausted
	}
	t := s.ticks[s.pos]
	s.pos++
	return t, nil
}
