package strategy

import (
	"fmt"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
)

// DefaultTickHistoryLimit is the tick window size used when none is set.
const DefaultTickHistoryLimit = 10

// Config holds the thresholds of the dip-averaging strategy. It is passed by
// value and never modified by the engine.
type Config struct {
	// InitBuyAmount is the number of positions opened on tick 0.
	InitBuyAmount int `json:"init_buy_amount"`
	// ContinueBuyAmount is the quantity of every position the engine opens.
	ContinueBuyAmount decimal.Decimal `json:"continue_buy_amount"`
	// GlobalStopLoss is an absolute price floor; reaching it liquidates
	// everything and ends trading.
	GlobalStopLoss decimal.Decimal `json:"global_stop_loss"`
	// AvgRateSellLimit is the take-profit multiplier on a position's open
	// rate (1.05 sells at +5%).
	AvgRateSellLimit decimal.Decimal `json:"avg_rate_sell_limit"`
	// Step is the absolute price drop since the previous tick that triggers
	// a dip buy.
	Step decimal.Decimal `json:"step"`
	// TicksAmountLimit stops trading once a tick number reaches it.
	TicksAmountLimit int `json:"ticks_amount_limit"`
	// TickHistoryLimit is the size of the recent tick window.
	TickHistoryLimit int `json:"tick_history_limit"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		InitBuyAmount:     1,
		ContinueBuyAmount: decimal.NewFromInt(1),
		GlobalStopLoss:    decimal.Zero,
		AvgRateSellLimit:  decimal.RequireFromString("1.05"),
		Step:              decimal.RequireFromString("0.02"),
		TicksAmountLimit:  1_000_000,
		TickHistoryLimit:  DefaultTickHistoryLimit,
	}
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.TickHistoryLimit == 0 {
		c.TickHistoryLimit = DefaultTickHistoryLimit
	}
	return c
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.InitBuyAmount < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("init_buy_amount cannot be negative, got %d", c.InitBuyAmount))
	}
	if !c.ContinueBuyAmount.IsPositive() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("continue_buy_amount must be positive, got %s", c.ContinueBuyAmount))
	}
	if c.GlobalStopLoss.IsNegative() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("global_stop_loss cannot be negative, got %s", c.GlobalStopLoss))
	}
	if !c.AvgRateSellLimit.IsPositive() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("avg_rate_sell_limit must be positive, got %s", c.AvgRateSellLimit))
	}
	if c.Step.IsNegative() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("step cannot be negative, got %s", c.Step))
	}
	if c.TicksAmountLimit <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ticks_amount_limit must be positive, got %d", c.TicksAmountLimit))
	}
	// The buy phase compares against the previous tick.
	if c.TickHistoryLimit < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("tick_history_limit must be at least 2, got %d", c.TickHistoryLimit))
	}
	return nil
}
