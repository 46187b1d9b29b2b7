package strategy

import "github.com/newthinker/dipper/internal/core"

// History is a bounded FIFO of the most recently processed ticks.
type History struct {
	limit int
	ticks []core.Tick
}

// NewHistory creates a window holding at most limit ticks.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultTickHistoryLimit
	}
	return &History{
		limit: limit,
		ticks: make([]core.Tick, 0, limit),
	}
}

// Push appends a tick, evicting the oldest when the window is full.
func (h *History) Push(t core.Tick) {
	if len(h.ticks) >= h.limit {
		copy(h.ticks, h.ticks[1:])
		h.ticks = h.ticks[:len(h.ticks)-1]
	}
	h.ticks = append(h.ticks, t)
}

// Last returns the most recent tick.
func (h *History) Last() (core.Tick, bool) {
	return h.back(1)
}

// Previous returns the tick before the most recent one.
func (h *History) Previous() (core.Tick, bool) {
	return h.back(2)
}

func (h *History) back(n int) (core.Tick, bool) {
	if len(h.ticks) < n {
		return core.Tick{}, false
	}
	return h.ticks[len(h.ticks)-n], true
}
