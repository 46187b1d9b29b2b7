package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/newthinker/dipper/internal/core"
	"github.com/newthinker/dipper/internal/execution"
	"github.com/newthinker/dipper/internal/feed"
	"github.com/newthinker/dipper/internal/logger"
	"github.com/newthinker/dipper/internal/storage/archive"
	"github.com/newthinker/dipper/internal/strategy"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DIPPER_STRATEGY_STEP.
const EnvPrefix = "DIPPER"

type Config struct {
	Strategy  StrategyConfig  `mapstructure:"strategy" yaml:"strategy"`
	Feed      FeedConfig      `mapstructure:"feed" yaml:"feed"`
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution"`
	Archive   ArchiveConfig   `mapstructure:"archive" yaml:"archive"`
	Journal   JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	Log       logger.Options  `mapstructure:"log" yaml:"log"`
}

// StrategyConfig holds the engine thresholds. Decimal values are kept as
// strings so they never pass through float64.
type StrategyConfig struct {
	InitBuyAmount     int    `mapstructure:"init_buy_amount" yaml:"init_buy_amount"`
	ContinueBuyAmount string `mapstructure:"continue_buy_amount" yaml:"continue_buy_amount"`
	GlobalStopLoss    string `mapstructure:"global_stop_loss" yaml:"global_stop_loss"`
	AvgRateSellLimit  string `mapstructure:"avg_rate_sell_limit" yaml:"avg_rate_sell_limit"`
	Step              string `mapstructure:"step" yaml:"step"`
	TicksAmountLimit  int    `mapstructure:"ticks_amount_limit" yaml:"ticks_amount_limit"`
	TickHistoryLimit  int    `mapstructure:"tick_history_limit" yaml:"tick_history_limit"`
}

type FeedConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	PriceColumn int    `mapstructure:"price_column" yaml:"price_column"`
	SkipHeader  bool   `mapstructure:"skip_header" yaml:"skip_header"`
}

type ExecutionConfig struct {
	Mode           string  `mapstructure:"mode" yaml:"mode"` // "dummy" or "paper"
	InitialBalance string  `mapstructure:"initial_balance" yaml:"initial_balance"`
	Slippage       string  `mapstructure:"slippage" yaml:"slippage"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst          int     `mapstructure:"burst" yaml:"burst"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Type    string   `mapstructure:"type" yaml:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path" yaml:"path"` // For localfs
	S3      S3Config `mapstructure:"s3" yaml:"s3"`     // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// JournalConfig holds run journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"` // SQLite file path or ":memory:"
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// NotifyConfig holds run completion notifier settings.
type NotifyConfig struct {
	Webhook  WebhookConfig  `mapstructure:"webhook" yaml:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled" yaml:"enabled"`
	URL     string            `mapstructure:"url" yaml:"url"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   string `mapstructure:"chat_id" yaml:"chat_id"`
}

// Load reads configuration from file. An empty path yields the defaults
// with environment overrides applied. A .env file in the working directory
// is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	sc := strategy.DefaultConfig()
	csv := feed.DefaultCSVConfig()

	return &Config{
		Strategy: StrategyConfig{
			InitBuyAmount:     sc.InitBuyAmount,
			ContinueBuyAmount: sc.ContinueBuyAmount.String(),
			GlobalStopLoss:    sc.GlobalStopLoss.String(),
			AvgRateSellLimit:  sc.AvgRateSellLimit.String(),
			Step:              sc.Step.String(),
			TicksAmountLimit:  sc.TicksAmountLimit,
			TickHistoryLimit:  sc.TickHistoryLimit,
		},
		Feed: FeedConfig{
			PriceColumn: csv.PriceColumn,
			SkipHeader:  csv.SkipHeader,
		},
		Execution: ExecutionConfig{
			Mode:           execution.ModeDummy,
			InitialBalance: "10000",
			Slippage:       "0",
			Burst:          1,
		},
		Archive: ArchiveConfig{
			Type: archive.TypeLocalFS,
			Path: "data/archive",
		},
		Journal: JournalConfig{
			DSN: "data/dipper.db",
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
			Path:   "/metrics",
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("strategy.init_buy_amount", d.Strategy.InitBuyAmount)
	v.SetDefault("strategy.continue_buy_amount", d.Strategy.ContinueBuyAmount)
	v.SetDefault("strategy.global_stop_loss", d.Strategy.GlobalStopLoss)
	v.SetDefault("strategy.avg_rate_sell_limit", d.Strategy.AvgRateSellLimit)
	v.SetDefault("strategy.step", d.Strategy.Step)
	v.SetDefault("strategy.ticks_amount_limit", d.Strategy.TicksAmountLimit)
	v.SetDefault("strategy.tick_history_limit", d.Strategy.TickHistoryLimit)

	v.SetDefault("feed.path", d.Feed.Path)
	v.SetDefault("feed.price_column", d.Feed.PriceColumn)
	v.SetDefault("feed.skip_header", d.Feed.SkipHeader)

	v.SetDefault("execution.mode", d.Execution.Mode)
	v.SetDefault("execution.initial_balance", d.Execution.InitialBalance)
	v.SetDefault("execution.slippage", d.Execution.Slippage)
	v.SetDefault("execution.rate_limit", d.Execution.RateLimit)
	v.SetDefault("execution.burst", d.Execution.Burst)

	v.SetDefault("archive.enabled", d.Archive.Enabled)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("archive.s3.bucket", d.Archive.S3.Bucket)
	v.SetDefault("archive.s3.endpoint", d.Archive.S3.Endpoint)
	v.SetDefault("archive.s3.region", d.Archive.S3.Region)
	v.SetDefault("archive.s3.access_key", d.Archive.S3.AccessKey)
	v.SetDefault("archive.s3.secret_key", d.Archive.S3.SecretKey)
	v.SetDefault("archive.s3.prefix", d.Archive.S3.Prefix)

	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.dsn", d.Journal.DSN)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("notify.webhook.enabled", d.Notify.Webhook.Enabled)
	v.SetDefault("notify.webhook.url", d.Notify.Webhook.URL)
	v.SetDefault("notify.telegram.enabled", d.Notify.Telegram.Enabled)
	v.SetDefault("notify.telegram.bot_token", d.Notify.Telegram.BotToken)
	v.SetDefault("notify.telegram.chat_id", d.Notify.Telegram.ChatID)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
}

// Build converts the section into a validated engine configuration.
func (s StrategyConfig) Build() (strategy.Config, error) {
	cfg := strategy.Config{
		InitBuyAmount:    s.InitBuyAmount,
		TicksAmountLimit: s.TicksAmountLimit,
		TickHistoryLimit: s.TickHistoryLimit,
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"continue_buy_amount", s.ContinueBuyAmount, &cfg.ContinueBuyAmount},
		{"global_stop_loss", s.GlobalStopLoss, &cfg.GlobalStopLoss},
		{"avg_rate_sell_limit", s.AvgRateSellLimit, &cfg.AvgRateSellLimit},
		{"step", s.Step, &cfg.Step},
	}
	for _, f := range fields {
		d, err := parseDecimal(f.name, f.raw)
		if err != nil {
			return strategy.Config{}, err
		}
		*f.dst = d
	}

	if err := cfg.Validate(); err != nil {
		return strategy.Config{}, err
	}
	return cfg, nil
}

// Build converts the section into CSV reader settings.
func (f FeedConfig) Build() feed.CSVConfig {
	return feed.CSVConfig{PriceColumn: f.PriceColumn, SkipHeader: f.SkipHeader}
}

// Build converts the section into execution client settings.
func (e ExecutionConfig) Build() (execution.Config, error) {
	balance, err := parseDecimal("initial_balance", e.InitialBalance)
	if err != nil {
		return execution.Config{}, err
	}
	slippage, err := parseDecimal("slippage", e.Slippage)
	if err != nil {
		return execution.Config{}, err
	}
	return execution.Config{
		Mode:           e.Mode,
		InitialBalance: balance,
		Slippage:       slippage,
		RateLimit:      e.RateLimit,
		Burst:          e.Burst,
	}, nil
}

// Build converts the section into archive backend settings.
func (a ArchiveConfig) Build() archive.Config {
	return archive.Config{
		Type: a.Type,
		Path: a.Path,
		S3: archive.S3Config{
			Bucket:    a.S3.Bucket,
			Endpoint:  a.S3.Endpoint,
			Region:    a.S3.Region,
			AccessKey: a.S3.AccessKey,
			SecretKey: a.S3.SecretKey,
			Prefix:    a.S3.Prefix,
		},
	}
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Archive.S3.SecretKey != "" {
		c.Archive.S3.SecretKey = "********"
	}
	if c.Notify.Telegram.BotToken != "" {
		c.Notify.Telegram.BotToken = "********"
	}
	if len(c.Notify.Webhook.Headers) > 0 {
		headers := make(map[string]string, len(c.Notify.Webhook.Headers))
		for k := range c.Notify.Webhook.Headers {
			headers[k] = "********"
		}
		c.Notify.Webhook.Headers = headers
	}
	return c
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.Strategy.Build(); err != nil {
		return err
	}

	if c.Feed.PriceColumn < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("feed price_column cannot be negative, got %d", c.Feed.PriceColumn))
	}

	switch c.Execution.Mode {
	case "", execution.ModeDummy, execution.ModePaper:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown execution mode %q", c.Execution.Mode))
	}
	if _, err := c.Execution.Build(); err != nil {
		return err
	}
	if c.Execution.RateLimit < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("execution rate_limit cannot be negative, got %v", c.Execution.RateLimit))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "", archive.TypeLocalFS:
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required when type is localfs"))
			}
		case archive.TypeS3:
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive s3 bucket required when type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	if c.Journal.Enabled && c.Journal.DSN == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("journal dsn required when journal is enabled"))
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics listen address required when metrics are enabled"))
	}

	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notify webhook url required when webhook is enabled"))
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notify telegram bot_token and chat_id required when telegram is enabled"))
	}

	return nil
}

func parseDecimal(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("%s: %q is not a decimal", name, raw))
	}
	return d, nil
}
