package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
strategy:
  init_buy_amount: 2
  continue_buy_amount: 0.5
  global_stop_loss: "8.5"
  step: 0.03

feed:
  path: "rates.csv"

execution:
  mode: paper
  initial_balance: 500
  slippage: 0.001

archive:
  enabled: true
  type: localfs
  path: "/tmp/dipper/archive"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Strategy.InitBuyAmount)
	assert.Equal(t, "0.5", cfg.Strategy.ContinueBuyAmount)
	assert.Equal(t, "8.5", cfg.Strategy.GlobalStopLoss)
	assert.Equal(t, "0.03", cfg.Strategy.Step)
	assert.Equal(t, "rates.csv", cfg.Feed.Path)
	assert.Equal(t, "paper", cfg.Execution.Mode)
	assert.Equal(t, "localfs", cfg.Archive.Type)

	// Unset keys keep their defaults
	assert.Equal(t, "1.05", cfg.Strategy.AvgRateSellLimit)
	assert.Equal(t, 10, cfg.Strategy.TickHistoryLimit)
	assert.Equal(t, 1, cfg.Feed.PriceColumn)
	assert.True(t, cfg.Feed.SkipHeader)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Strategy, cfg.Strategy)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("DIPPER_TEST_SECRET", "s3cr3t")
	path := writeConfig(t, `
archive:
  type: s3
  s3:
    bucket: backtests
    secret_key: "${DIPPER_TEST_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Archive.S3.SecretKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DIPPER_STRATEGY_STEP", "0.05")
	t.Setenv("DIPPER_EXECUTION_MODE", "paper")

	cfg, err := Load(writeConfig(t, "strategy:\n  step: 0.02\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.05", cfg.Strategy.Step)
	assert.Equal(t, "paper", cfg.Execution.Mode)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 1, cfg.Strategy.InitBuyAmount)
	assert.Equal(t, "0.02", cfg.Strategy.Step)
	assert.Equal(t, "dummy", cfg.Execution.Mode)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Archive.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestStrategyConfig_Build(t *testing.T) {
	sc := Defaults().Strategy
	sc.GlobalStopLoss = "9.5"

	cfg, err := sc.Build()
	require.NoError(t, err)
	assert.True(t, cfg.GlobalStopLoss.Equal(decimal.RequireFromString("9.5")))
	assert.True(t, cfg.AvgRateSellLimit.Equal(decimal.RequireFromString("1.05")))
	assert.Equal(t, 1_000_000, cfg.TicksAmountLimit)
}

func TestStrategyConfig_BuildRejectsBadDecimal(t *testing.T) {
	sc := Defaults().Strategy
	sc.Step = "two cents"

	_, err := sc.Build()
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestExecutionConfig_Build(t *testing.T) {
	ec := ExecutionConfig{Mode: "paper", InitialBalance: "250.5", Slippage: "0.01", RateLimit: 20, Burst: 5}

	cfg, err := ec.Build()
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.Mode)
	assert.True(t, cfg.InitialBalance.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, cfg.Slippage.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, 5, cfg.Burst)
}

func TestArchiveConfig_Build(t *testing.T) {
	ac := ArchiveConfig{Type: "s3", S3: S3Config{Bucket: "b", Prefix: "runs", Region: "eu-west-1"}}

	cfg := ac.Build()
	assert.Equal(t, "s3", cfg.Type)
	assert.Equal(t, "b", cfg.S3.Bucket)
	assert.Equal(t, "runs", cfg.S3.Prefix)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.S3.SecretKey = "s3cr3t"

	red := cfg.Redacted()
	assert.Equal(t, "********", red.Archive.S3.SecretKey)
	assert.Equal(t, "s3cr3t", cfg.Archive.S3.SecretKey)
}

func TestConfig_RedactedNotifySecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.Telegram.BotToken = "123:abc"
	cfg.Notify.Webhook.Headers = map[string]string{"Authorization": "Bearer x"}

	red := cfg.Redacted()
	assert.Equal(t, "********", red.Notify.Telegram.BotToken)
	assert.Equal(t, "********", red.Notify.Webhook.Headers["Authorization"])
	assert.Equal(t, "Bearer x", cfg.Notify.Webhook.Headers["Authorization"])
}

func TestLoad_NotifySection(t *testing.T) {
	path := writeConfig(t, `
notify:
  webhook:
    enabled: true
    url: "http://localhost:8080/hooks/dipper"
    headers:
      X-Token: abc
  telegram:
    enabled: true
    bot_token: "${DIPPER_TEST_BOT_TOKEN}"
    chat_id: "42"
`)
	t.Setenv("DIPPER_TEST_BOT_TOKEN", "123:abc")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Notify.Webhook.Enabled)
	assert.Equal(t, "http://localhost:8080/hooks/dipper", cfg.Notify.Webhook.URL)
	assert.Equal(t, "abc", cfg.Notify.Webhook.Headers["x-token"])
	assert.Equal(t, "123:abc", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Notify.Telegram.ChatID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "history window too small",
			mutate:  func(c *Config) { c.Strategy.TickHistoryLimit = 1 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "negative price column",
			mutate:  func(c *Config) { c.Feed.PriceColumn = -1 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "unknown execution mode",
			mutate:  func(c *Config) { c.Execution.Mode = "live" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "bad slippage",
			mutate:  func(c *Config) { c.Execution.Slippage = "lots" },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Execution.RateLimit = -1 },
			wantErr: core.ErrConfigInvalid,
		},
		{
			name: "archive localfs without path",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Path = ""
			},
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "archive s3 without bucket",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Type = "s3"
			},
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "unknown archive type",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Archive.Type = "ftp"
			},
			wantErr: core.ErrConfigInvalid,
		},
		{
			name: "disabled archive is not checked",
			mutate: func(c *Config) {
				c.Archive.Type = "ftp"
			},
		},
		{
			name: "journal without dsn",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.DSN = ""
			},
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "metrics without listen",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = ""
			},
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "webhook without url",
			mutate:  func(c *Config) { c.Notify.Webhook.Enabled = true },
			wantErr: core.ErrConfigMissing,
		},
		{
			name: "telegram without chat id",
			mutate: func(c *Config) {
				c.Notify.Telegram.Enabled = true
				c.Notify.Telegram.BotToken = "token"
			},
			wantErr: core.ErrConfigMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
