package execution

import (
	"fmt"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Supported execution modes.
const (
	ModeDummy = "dummy"
	ModePaper = "paper"
)

// Config selects and configures an execution client.
type Config struct {
	Mode           string
	InitialBalance decimal.Decimal
	Slippage       decimal.Decimal
	// RateLimit is requests per second; zero disables throttling.
	RateLimit float64
	Burst     int
}

// New builds the client described by cfg. When recorder is non-nil the
// client is wrapped with Instrumented.
func New(cfg Config, recorder Recorder, log *zap.Logger) (Client, error) {
	var client Client

	switch cfg.Mode {
	case "", ModeDummy:
		client = NewDummy()
	case ModePaper:
		if !cfg.InitialBalance.IsPositive() {
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("paper execution requires a positive initial_balance, got %s", cfg.InitialBalance))
		}
		if cfg.Slippage.IsNegative() || cfg.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("slippage must be in [0, 1), got %s", cfg.Slippage))
		}
		client = NewPaper(PaperConfig{
			InitialBalance: cfg.InitialBalance,
			Slippage:       cfg.Slippage,
		}, log)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown execution mode %q", cfg.Mode))
	}

	if cfg.RateLimit > 0 {
		client = NewThrottled(client, cfg.RateLimit, cfg.Burst)
	}
	if recorder != nil {
		client = NewInstrumented(client, recorder)
	}
	return client, nil
}
