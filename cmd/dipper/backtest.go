package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/newthinker/dipper/internal/backtest"
	"github.com/newthinker/dipper/internal/config"
	"github.com/newthinker/dipper/internal/execution"
	"github.com/newthinker/dipper/internal/feed"
	"github.com/newthinker/dipper/internal/feed/binance"
	"github.com/newthinker/dipper/internal/metrics"
	"github.com/newthinker/dipper/internal/notifier"
	"github.com/newthinker/dipper/internal/notifier/telegram"
	"github.com/newthinker/dipper/internal/notifier/webhook"
	"github.com/newthinker/dipper/internal/storage/archive"
	"github.com/newthinker/dipper/internal/storage/journal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backtestMode     string
	backtestJSON     bool
	backtestBinance  string
	backtestInterval string
	backtestFrom     string
	backtestTo       string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [rates.csv]",
	Short: "Replay a rates file or Binance klines through the strategy",
	Long: `Replay a CSV rates file through the strategy engine and print the results.
The file argument overrides feed.path from the configuration.

With --binance the ticks are the kline closes of that symbol, downloaded
while the run progresses:
  dipper backtest --binance BTCUSDT --interval 1m --from 2024-01-01 --to 2024-01-02`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestMode, "mode", "", "execution mode override (dummy|paper)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the result as JSON instead of tables")
	backtestCmd.Flags().StringVar(&backtestBinance, "binance", "", "replay Binance klines of this symbol instead of a rates file")
	backtestCmd.Flags().StringVar(&backtestInterval, "interval", "1m", "kline interval for --binance")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date for --binance (YYYY-MM-DD or RFC3339)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date for --binance (default now)")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Feed.Path = args[0]
	}
	if backtestMode != "" {
		cfg.Execution.Mode = backtestMode
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	if backtestBinance != "" && len(args) == 1 {
		return fmt.Errorf("pass either a rates file or --binance, not both")
	}
	if backtestBinance == "" && cfg.Feed.Path == "" {
		return fmt.Errorf("no rates file: pass one as argument, set feed.path or use --binance")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strategyCfg, err := cfg.Strategy.Build()
	if err != nil {
		return err
	}
	execCfg, err := cfg.Execution.Build()
	if err != nil {
		return err
	}

	var (
		reg      *metrics.Registry
		recorder execution.Recorder
		opts     = []backtest.Option{backtest.WithLogger(log)}
	)

	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		recorder = reg
		opts = append(opts, backtest.WithMetrics(reg))

		server := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, reg, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	client, err := execution.New(execCfg, recorder, log)
	if err != nil {
		return fmt.Errorf("creating execution client: %w", err)
	}

	if cfg.Archive.Enabled {
		store, err := archive.New(cfg.Archive.Build())
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		opts = append(opts, backtest.WithArchive(archive.NewReports(store)))
	}

	if cfg.Journal.Enabled {
		store, err := openJournal(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, backtest.WithJournal(store))
	}

	notifiers, err := buildNotifiers(cfg.Notify)
	if err != nil {
		return err
	}
	if notifiers.Len() > 0 {
		opts = append(opts, backtest.WithNotifier(notifiers))
	}

	runner, err := backtest.NewRunner(strategyCfg, client, opts...)
	if err != nil {
		return err
	}

	src, source, closeFeed, err := openFeed(cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	result, runErr := runner.Run(ctx, src, source)
	if result != nil {
		if err := printResult(cmd, result); err != nil {
			return err
		}
	}
	return runErr
}

// openFeed returns the tick source selected by the flags and configuration
// together with its name for the run record.
func openFeed(cfg *config.Config) (feed.Feed, string, func() error, error) {
	if backtestBinance == "" {
		src, err := feed.OpenCSV(cfg.Feed.Path, cfg.Feed.Build())
		if err != nil {
			return nil, "", nil, fmt.Errorf("opening rates: %w", err)
		}
		return src, cfg.Feed.Path, src.Close, nil
	}

	if backtestFrom == "" {
		return nil, "", nil, fmt.Errorf("--from is required with --binance")
	}
	from, err := parseDate(backtestFrom)
	if err != nil {
		return nil, "", nil, fmt.Errorf("invalid --from: %w", err)
	}
	var to time.Time
	if backtestTo != "" {
		if to, err = parseDate(backtestTo); err != nil {
			return nil, "", nil, fmt.Errorf("invalid --to: %w", err)
		}
	}

	src, err := binance.New(binance.Config{
		Symbol:            backtestBinance,
		Interval:          backtestInterval,
		Start:             from,
		End:               to,
		RequestsPerSecond: 5,
	})
	if err != nil {
		return nil, "", nil, err
	}
	source := fmt.Sprintf("binance:%s@%s", backtestBinance, backtestInterval)
	return src, source, func() error { return nil }, nil
}

func printResult(cmd *cobra.Command, result *backtest.Result) error {
	out := cmd.OutOrStdout()
	if backtestJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return backtest.Render(out, result)
}

func openJournal(cfg *config.Config) (journal.Store, error) {
	if cfg.Journal.DSN == "" {
		return nil, fmt.Errorf("journal dsn is not configured")
	}
	if dsn := cfg.Journal.DSN; dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}
	store, err := journal.NewSQLiteStore(cfg.Journal.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return store, nil
}

func buildNotifiers(cfg config.NotifyConfig) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()

	if cfg.Webhook.Enabled {
		w, err := webhook.New(cfg.Webhook.URL, cfg.Webhook.Headers)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(w); err != nil {
			return nil, err
		}
	}

	if cfg.Telegram.Enabled {
		tg, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(tg); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
