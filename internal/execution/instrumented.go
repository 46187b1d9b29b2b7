package execution

import (
	"context"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
)

// Outcome labels used when recording orders.
const (
	OutcomeFilled   = "filled"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder receives one call per execution request.
type Recorder interface {
	RecordOrder(side, outcome string)
}

// Instrumented reports every request's outcome to a Recorder.
type Instrumented struct {
	next     Client
	recorder Recorder
}

// NewInstrumented wraps next.
func NewInstrumented(next Client, recorder Recorder) *Instrumented {
	return &Instrumented{next: next, recorder: recorder}
}

// Name returns the wrapped client's name.
func (i *Instrumented) Name() string {
	return i.next.Name()
}

// Unwrap returns the instrumented client.
func (i *Instrumented) Unwrap() Client { return i.next }

// Buy forwards and records the outcome.
func (i *Instrumented) Buy(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	fill, err := i.next.Buy(ctx, quantity, price)
	i.recorder.RecordOrder(string(core.SideBuy), outcome(fill, err))
	return fill, err
}

// Sell forwards and records the outcome.
func (i *Instrumented) Sell(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	fill, err := i.next.Sell(ctx, quantity, price)
	i.recorder.RecordOrder(string(core.SideSell), outcome(fill, err))
	return fill, err
}

func outcome(fill *Fill, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case fill.IsFilled():
		return OutcomeFilled
	default:
		return OutcomeRejected
	}
}
