// Package strategy implements the tick-driven dip-averaging engine.
package strategy

import (
	"context"
	"fmt"

	"github.com/newthinker/dipper/internal/core"
	"github.com/newthinker/dipper/internal/execution"
	"github.com/newthinker/dipper/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StopReason says why the engine stopped trading.
type StopReason string

const (
	StopNone      StopReason = ""
	StopTickLimit StopReason = "tick_limit"
	StopLoss      StopReason = "stop_loss"
)

// Engine consumes ticks one at a time and opens or closes positions through
// an execution client. It keeps the running maximum of open exposure.
//
// Engine is not safe for concurrent use.
type Engine struct {
	config  Config
	client  execution.Client
	ledger  *ledger.Ledger
	history *History
	logger  *zap.Logger

	peak    ledger.OnHold
	hasPeak bool

	lastNumber int
	started    bool
	stopped    StopReason
}

// NewEngine creates an engine with the given configuration and client.
func NewEngine(cfg Config, client execution.Client, logger ...*zap.Logger) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("execution client required"))
	}

	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}

	return &Engine{
		config:  cfg,
		client:  client,
		ledger:  ledger.New(),
		history: NewHistory(cfg.TickHistoryLimit),
		logger:  l,
	}, nil
}

// Tick processes one tick and reports whether trading should continue.
//
// Execution rejections never surface as errors. An error is returned only
// for contract violations: a non-positive price, a tick number that does not
// strictly increase, or a ledger state violation. Once the engine has
// stopped, further ticks are ignored and Tick returns false.
//
// Exposure is sampled again right after the bootstrap buys on tick 0, so the
// peak of a run that never adds a lot is stamped with tick 0 rather than
// the first later tick.
func (e *Engine) Tick(ctx context.Context, tick core.Tick) (bool, error) {
	if e.stopped != StopNone {
		return false, nil
	}
	if !tick.IsValid() {
		return false, core.WrapError(core.ErrTickInvalid, fmt.Errorf("got %s", tick))
	}
	if e.started && tick.Number <= e.lastNumber {
		return false, core.WrapError(core.ErrTickOutOfOrder,
			fmt.Errorf("got tick %d after %d", tick.Number, e.lastNumber))
	}
	e.started = true
	e.lastNumber = tick.Number

	e.history.Push(tick)
	e.observe(tick)

	if tick.Number >= e.config.TicksAmountLimit {
		e.logger.Warn("end trading session by tick limit",
			zap.Int("tick", tick.Number),
			zap.Int("limit", e.config.TicksAmountLimit),
		)
		e.stopped = StopTickLimit
		return false, nil
	}

	switch tick.Number {
	case 0:
		e.logger.Info("init buy", zap.Int("positions", e.config.InitBuyAmount))
		for range e.config.InitBuyAmount {
			e.openPosition(ctx, tick)
		}
		e.observe(tick)
		return true, nil
	case 1:
		e.logger.Debug("skip warm-up tick")
		return true, nil
	}

	if tick.Price.LessThanOrEqual(e.config.GlobalStopLoss) {
		e.logger.Warn("global stop loss fired",
			zap.Stringer("price", tick.Price),
			zap.Int("open", e.ledger.OpenCount()),
			zap.Int("closed", e.ledger.ClosedCount()),
		)
		e.stopped = StopLoss
		for _, pos := range e.ledger.OpenSortedByRate() {
			if _, err := e.closePosition(ctx, pos, tick); err != nil {
				return false, err
			}
		}
		e.observe(tick)
		return false, nil
	}

	sold, err := e.sellSomething(ctx, tick)
	if err != nil {
		return false, err
	}

	// One direction per tick: never re-buy in a tick that sold.
	if sold == 0 {
		e.buySomething(ctx, tick)
	}

	e.observe(tick)
	return true, nil
}

// sellSomething closes every open position whose take-profit threshold the
// tick clears, cheapest lot first. It returns the number of closed positions.
func (e *Engine) sellSomething(ctx context.Context, tick core.Tick) (int, error) {
	sold := 0
	for _, pos := range e.ledger.OpenSortedByRate() {
		target := pos.OpenRate.Mul(e.config.AvgRateSellLimit)
		e.logger.Debug("check sale",
			zap.Stringer("position", pos),
			zap.Stringer("price", tick.Price),
			zap.Stringer("target", target),
		)
		if tick.Price.LessThan(target) {
			continue
		}
		ok, err := e.closePosition(ctx, pos, tick)
		if err != nil {
			return sold, err
		}
		if ok {
			sold++
		}
	}
	return sold, nil
}

// buySomething opens one position when the price dropped by at least Step
// since the previous tick.
func (e *Engine) buySomething(ctx context.Context, tick core.Tick) {
	prev, ok := e.history.Previous()
	if !ok {
		return
	}
	drop := prev.Price.Sub(tick.Price)
	e.logger.Debug("check rates for buy",
		zap.Stringer("prev", prev.Price),
		zap.Stringer("drop", drop),
	)
	if drop.GreaterThanOrEqual(e.config.Step) {
		e.openPosition(ctx, tick)
	}
}

// openPosition buys ContinueBuyAmount at the tick price and books the fill.
func (e *Engine) openPosition(ctx context.Context, tick core.Tick) bool {
	fill, err := e.client.Buy(ctx, e.config.ContinueBuyAmount, tick.Price)
	if !e.accepted(core.SideBuy, fill, err, tick) {
		return false
	}
	pos := e.ledger.Open(fill.ExecutedQty, fill.Price(), tick.Number)
	e.logger.Info("open new position", zap.Stringer("position", pos))
	return true
}

// closePosition sells the whole position and moves it to the closed set.
// A rejected sell leaves the ledger untouched and returns false, nil.
func (e *Engine) closePosition(ctx context.Context, pos ledger.Position, tick core.Tick) (bool, error) {
	fill, err := e.client.Sell(ctx, pos.Amount, tick.Price)
	if !e.accepted(core.SideSell, fill, err, tick) {
		return false, nil
	}
	closed, err := e.ledger.Close(pos.ID, fill.Price(), tick.Number)
	if err != nil {
		return false, fmt.Errorf("closing position %d: %w", pos.ID, err)
	}
	e.logger.Info("close position", zap.Stringer("position", closed))
	return true, nil
}

func (e *Engine) accepted(side core.Side, fill *execution.Fill, err error, tick core.Tick) bool {
	if err == nil && fill.IsFilled() {
		return true
	}
	if err == nil {
		err = fill.Err()
	}
	e.logger.Info("execution rejected",
		zap.String("side", string(side)),
		zap.Int("tick", tick.Number),
		zap.Stringer("price", tick.Price),
		zap.Error(err),
	)
	return false
}

// observe updates the retained exposure peak.
func (e *Engine) observe(tick core.Tick) {
	current := e.ledger.OnHold(tick)
	if !e.hasPeak || current.BuyAmount.GreaterThan(e.peak.BuyAmount) {
		e.peak = current
		e.hasPeak = true
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Ledger returns the position ledger. Callers must not mutate it.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Peak returns the snapshot with the highest cost basis observed so far.
func (e *Engine) Peak() (ledger.OnHold, bool) { return e.peak, e.hasPeak }

// LastPrice returns the last processed price, or zero before any tick.
func (e *Engine) LastPrice() decimal.Decimal {
	t, _ := e.history.Last()
	return t.Price
}

// StopReason returns why the engine stopped, or StopNone.
func (e *Engine) StopReason() StopReason { return e.stopped }
