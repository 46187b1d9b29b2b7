package execution

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Throttled waits on a rate limiter before forwarding each request.
type Throttled struct {
	next    Client
	limiter *rate.Limiter
}

// NewThrottled limits next to perSecond requests with the given burst.
func NewThrottled(next Client, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name returns the wrapped client's name.
func (t *Throttled) Name() string {
	return t.next.Name()
}

// Unwrap returns the throttled client.
func (t *Throttled) Unwrap() Client { return t.next }

// Buy waits for a token, then forwards.
func (t *Throttled) Buy(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle buy: %w", err)
	}
	return t.next.Buy(ctx, quantity, price)
}

// Sell waits for a token, then forwards.
func (t *Throttled) Sell(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle sell: %w", err)
	}
	return t.next.Sell(ctx, quantity, price)
}
