package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/dipper/internal/core"
	"github.com/newthinker/dipper/internal/execution"
	"github.com/newthinker/dipper/internal/feed"
	"github.com/newthinker/dipper/internal/metrics"
	"github.com/newthinker/dipper/internal/notifier"
	"github.com/newthinker/dipper/internal/report"
	"github.com/newthinker/dipper/internal/storage/archive"
	"github.com/newthinker/dipper/internal/storage/journal"
	"github.com/newthinker/dipper/internal/strategy"
	"go.uber.org/zap"
)

// Runner feeds ticks to a fresh strategy engine until the engine stops or
// the feed is exhausted, then reports and persists the run.
type Runner struct {
	config  strategy.Config
	client  execution.Client
	paper   *execution.Paper
	metrics *metrics.Registry
	reports *archive.Reports
	journal journal.Store
	notify  *notifier.Registry
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records tick and run metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = reg }
}

// WithArchive writes each run's result as a JSON report.
func WithArchive(reports *archive.Reports) Option {
	return func(r *Runner) { r.reports = reports }
}

// WithJournal records each run in store.
func WithJournal(store journal.Store) Option {
	return func(r *Runner) { r.journal = store }
}

// WithNotifier announces each finished run through reg.
func WithNotifier(reg *notifier.Registry) Option {
	return func(r *Runner) { r.notify = reg }
}

// WithLogger sets the logger shared with the engine.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Runner) { r.newID = newID }
}

// NewRunner creates a runner for cfg trading through client.
func NewRunner(cfg strategy.Config, client execution.Client, opts ...Option) (*Runner, error) {
	if client == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("execution client is required"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		config: cfg,
		client: client,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.paper, _ = execution.PaperAccount(client)
	return r, nil
}

// Run replays src. source names the tick origin in the result and journal.
//
// The returned Result is non-nil whenever the engine could be created, even
// if the run failed part way: it then describes the state reached. The
// error joins any replay failure with any persistence failure.
func (r *Runner) Run(ctx context.Context, src feed.Feed, source string) (*Result, error) {
	engine, err := strategy.NewEngine(r.config, r.client, r.logger)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     r.newID(),
		Source:    source,
		Client:    r.client.Name(),
		StartedAt: r.now(),
		Strategy:  engine.Config(),
	}
	log := r.logger.With(zap.String("run_id", result.RunID))
	log.Info("starting backtest",
		zap.String("source", source),
		zap.String("client", result.Client),
	)

	runErr := r.replay(ctx, engine, src, result)

	switch {
	case runErr == nil:
		result.Status = StatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		result.Status = StatusCancelled
		result.Error = runErr.Error()
	default:
		result.Status = StatusFailed
		result.Error = runErr.Error()
	}

	r.collect(engine, result)
	result.FinishedAt = r.now()

	if r.metrics != nil {
		r.metrics.RecordRun(string(result.Status), result.Duration().Seconds())
	}

	persistErr := r.persist(ctx, result)
	if persistErr != nil {
		log.Warn("failed to persist run", zap.Error(persistErr))
	}

	r.announce(ctx, log, result)

	log.Info("backtest finished",
		zap.String("status", string(result.Status)),
		zap.String("stop_reason", result.StopReason),
		zap.Int("ticks", result.Ticks),
		zap.Stringer("total_profit", result.Report.TotalProfit),
		zap.Duration("duration", result.Duration()),
	)

	return result, errors.Join(runErr, persistErr)
}

func (r *Runner) replay(ctx context.Context, engine *strategy.Engine, src feed.Feed, result *Result) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tick, err := src.Next(ctx)
		if errors.Is(err, core.ErrFeedExhausted) {
			if result.Ticks == 0 {
				return core.WrapError(core.ErrNoData, fmt.Errorf("feed %q produced no ticks", result.Source))
			}
			result.StopReason = StopFeedExhausted
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tick %d: %w", result.Ticks, err)
		}

		result.Ticks++
		result.LastTick = tick.Number

		cont, err := engine.Tick(ctx, tick)
		r.recordTick(engine, tick)
		if err != nil {
			return fmt.Errorf("processing %s: %w", tick, err)
		}
		if !cont {
			result.StopReason = string(engine.StopReason())
			return nil
		}
	}
}

func (r *Runner) recordTick(engine *strategy.Engine, tick core.Tick) {
	if r.metrics == nil {
		return
	}
	peak, _ := engine.Peak()
	r.metrics.RecordTick(tick.Price.InexactFloat64(), peak.BuyAmount.InexactFloat64(), engine.Ledger().OpenCount())
	if r.paper != nil {
		st := r.paper.Stats()
		r.metrics.RecordBalances(st.Quote.InexactFloat64(), st.Base.InexactFloat64())
	}
}

func (r *Runner) collect(engine *strategy.Engine, result *Result) {
	l := engine.Ledger()
	peak, _ := engine.Peak()

	result.Report = report.Build(l, peak, engine.LastPrice())
	// Closed positions in close order, then open ones in open order.
	result.Positions = append(l.ClosedPositions(), l.OpenPositions()...)
	result.Stats = CalculateStats(result.Positions)
	if r.paper != nil {
		st := r.paper.Stats()
		result.Account = &st
	}
}

func (r *Runner) persist(ctx context.Context, result *Result) error {
	// Persist even when the replay was cancelled.
	ctx = context.WithoutCancel(ctx)

	var errs []error
	if r.reports != nil {
		p, err := r.reports.Save(ctx, result.RunID, result.StartedAt, result)
		if err != nil {
			errs = append(errs, err)
		} else {
			result.ReportPath = p
		}
	}

	if r.journal != nil {
		if err := r.journal.SaveRun(ctx, journalRun(result), result.Positions); err != nil {
			errs = append(errs, fmt.Errorf("journaling run: %w", err))
		}
	}
	return errors.Join(errs...)
}

// announce delivers the run summary. Notifier failures are logged only.
func (r *Runner) announce(ctx context.Context, log *zap.Logger, result *Result) {
	if r.notify == nil || r.notify.Len() == 0 {
		return
	}
	for name, err := range r.notify.NotifyAll(context.WithoutCancel(ctx), summary(result)) {
		log.Warn("notifier failed", zap.String("notifier", name), zap.Error(err))
	}
}

func summary(result *Result) notifier.Summary {
	rep := result.Report
	return notifier.Summary{
		RunID:          result.RunID,
		Source:         result.Source,
		Status:         string(result.Status),
		StopReason:     result.StopReason,
		Ticks:          result.Ticks,
		RealizedProfit: rep.RealizedProfit,
		TotalProfit:    rep.TotalProfit,
		TotalProfitPct: rep.TotalProfitPct,
		PeakBuyAmount:  rep.Peak.BuyAmount,
		ReportPath:     result.ReportPath,
		Error:          result.Error,
		FinishedAt:     result.FinishedAt,
	}
}

func journalRun(result *Result) journal.Run {
	rep := result.Report
	return journal.Run{
		ID:              result.RunID,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		Source:          result.Source,
		Client:          result.Client,
		Status:          string(result.Status),
		StopReason:      result.StopReason,
		Ticks:           result.Ticks,
		LastTick:        result.LastTick,
		LastPrice:       rep.LastPrice,
		OpenPositions:   rep.OpenPositions,
		ClosedPositions: rep.ClosedPositions,
		RealizedProfit:  rep.RealizedProfit,
		TotalProfit:     rep.TotalProfit,
		PeakBuyAmount:   rep.Peak.BuyAmount,
		ReportPath:      result.ReportPath,
		Error:           result.Error,
	}
}
