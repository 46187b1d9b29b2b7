package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperConfig holds settings for the paper client.
type PaperConfig struct {
	// InitialBalance is the quote currency available for buys.
	InitialBalance decimal.Decimal
	// Slippage is the fractional price penalty applied to every fill
	// (0.001 = 0.1%). Buys fill higher, sells fill lower.
	Slippage decimal.Decimal
}

// PaperStats summarises the paper account.
type PaperStats struct {
	Quote    decimal.Decimal `json:"quote"`
	Base     decimal.Decimal `json:"base"`
	Fills    int             `json:"fills"`
	Rejected int             `json:"rejected"`
}

// Paper simulates execution against virtual quote and base balances.
// Requests that the balances cannot cover are rejected, not errored.
type Paper struct {
	config PaperConfig
	log    *zap.Logger

	mu       sync.Mutex
	quote    decimal.Decimal
	base     decimal.Decimal
	fills    int
	rejected int
}

// NewPaper creates a paper client funded with cfg.InitialBalance.
func NewPaper(cfg PaperConfig, log *zap.Logger) *Paper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Paper{
		config: cfg,
		log:    log,
		quote:  cfg.InitialBalance,
		base:   decimal.Zero,
	}
}

// Name returns the client name.
func (p *Paper) Name() string {
	return "paper"
}

// Buy debits quote and credits base at price plus slippage.
func (p *Paper) Buy(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	execPrice := price.Mul(decimal.NewFromInt(1).Add(p.config.Slippage))
	cost := quantity.Mul(execPrice)

	p.mu.Lock()
	defer p.mu.Unlock()

	if cost.GreaterThan(p.quote) {
		p.rejected++
		reason := fmt.Sprintf("insufficient quote balance: need %s, have %s", cost, p.quote)
		p.log.Debug("paper buy rejected", zap.String("reason", reason))
		return Rejected(reason), nil
	}

	p.quote = p.quote.Sub(cost)
	p.base = p.base.Add(quantity)
	p.fills++

	p.log.Debug("paper buy filled",
		zap.String("qty", quantity.String()),
		zap.String("price", execPrice.String()),
	)
	return &Fill{Status: StatusFilled, ExecutedQty: quantity, CummulativeQuoteQty: cost}, nil
}

// Sell debits base and credits quote at price minus slippage.
func (p *Paper) Sell(ctx context.Context, quantity, price decimal.Decimal) (*Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	execPrice := price.Mul(decimal.NewFromInt(1).Sub(p.config.Slippage))
	proceeds := quantity.Mul(execPrice)

	p.mu.Lock()
	defer p.mu.Unlock()

	if quantity.GreaterThan(p.base) {
		p.rejected++
		reason := fmt.Sprintf("insufficient base balance: need %s, have %s", quantity, p.base)
		p.log.Debug("paper sell rejected", zap.String("reason", reason))
		return Rejected(reason), nil
	}

	p.base = p.base.Sub(quantity)
	p.quote = p.quote.Add(proceeds)
	p.fills++

	p.log.Debug("paper sell filled",
		zap.String("qty", quantity.String()),
		zap.String("price", execPrice.String()),
	)
	return &Fill{Status: StatusFilled, ExecutedQty: quantity, CummulativeQuoteQty: proceeds}, nil
}

// Stats returns the current balances and counters.
func (p *Paper) Stats() PaperStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PaperStats{
		Quote:    p.quote,
		Base:     p.base,
		Fills:    p.fills,
		Rejected: p.rejected,
	}
}

// PaperAccount finds the Paper client behind any decorators wrapping c.
func PaperAccount(c Client) (*Paper, bool) {
	for c != nil {
		if p, ok := c.(*Paper); ok {
			return p, true
		}
		u, ok := c.(interface{ Unwrap() Client })
		if !ok {
			return nil, false
		}
		c = u.Unwrap()
	}
	return nil, false
}
