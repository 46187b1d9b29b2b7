// Package binance replays spot klines from the Binance REST API as ticks.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	// pageSize is the largest page the klines endpoint returns.
	pageSize = 1000
)

var intervals = map[string]bool{
	"1s": true, "1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Config selects the klines to replay.
type Config struct {
	Symbol   string
	Interval string
	Start    time.Time
	End      time.Time
	BaseURL  string
	// RequestsPerSecond bounds page requests; 0 means unlimited.
	RequestsPerSecond float64
}

// Kline is the part of a candle the feed uses.
type Kline struct {
	OpenTime time.Time
	Close    decimal.Decimal
}

// Klines pages through the klines endpoint, yielding one tick per candle
// close numbered from 0.
type Klines struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter

	buf    []Kline
	cursor time.Time
	done   bool
	next   int
}

// New validates cfg and creates a feed. No request is made until Next.
func New(cfg Config) (*Klines, error) {
	if cfg.Symbol == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("binance: symbol is required"))
	}
	if cfg.Interval == "" {
		cfg.Interval = "1m"
	}
	if !intervals[cfg.Interval] {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("binance: unsupported interval %q", cfg.Interval))
	}
	if cfg.Start.IsZero() {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("binance: start time is required"))
	}
	if cfg.End.IsZero() {
		cfg.End = time.Now()
	}
	if !cfg.End.After(cfg.Start) {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("binance: end %s is not after start %s", cfg.End, cfg.Start))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Klines{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		cursor:  cfg.Start,
	}, nil
}

// Next returns the close of the next candle as a tick.
func (k *Klines) Next(ctx context.Context) (core.Tick, error) {
	kl, err := k.NextKline(ctx)
	if err != nil {
		return core.Tick{}, err
	}
	t := core.Tick{Number: k.next, Price: kl.Close}
	k.next++
	return t, nil
}

// NextKline returns the next candle, fetching another page when the buffer
// is empty. It returns core.ErrFeedExhausted after the last candle.
func (k *Klines) NextKline(ctx context.Context) (Kline, error) {
	if err := ctx.Err(); err != nil {
		return Kline{}, err
	}
	if len(k.buf) == 0 && !k.done {
		if err := k.fetch(ctx); err != nil {
			return Kline{}, err
		}
	}
	if len(k.buf) == 0 {
		return Kline{}, core.ErrFeedExhausted
	}
	kl := k.buf[0]
	k.buf = k.buf[1:]
	return kl, nil
}

func (k *Klines) fetch(ctx context.Context) error {
	if err := k.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("binance: waiting for rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("symbol", k.config.Symbol)
	q.Set("interval", k.config.Interval)
	q.Set("startTime", strconv.FormatInt(k.cursor.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(k.config.End.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.config.BaseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("binance: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("binance: fetching klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("binance: unexpected status %d: %s", resp.StatusCode, apiErr.Msg)
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return fmt.Errorf("binance: decoding klines: %w", err)
	}

	page, err := parseKlines(rows)
	if err != nil {
		return err
	}

	if len(page) < pageSize {
		k.done = true
	}
	if len(page) > 0 {
		k.cursor = page[len(page)-1].OpenTime.Add(time.Millisecond)
	}
	k.buf = page
	return nil
}

// parseKlines reads open time and close price from raw kline rows.
func parseKlines(rows [][]any) ([]Kline, error) {
	out := make([]Kline, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("binance: kline %d has %d fields", i, len(row))
		}
		openTime, ok := row[0].(float64)
		if !ok {
			return nil, fmt.Errorf("binance: kline %d: bad open time %v", i, row[0])
		}
		closeStr, ok := row[4].(string)
		if !ok {
			return nil, fmt.Errorf("binance: kline %d: bad close %v", i, row[4])
		}
		price, err := decimal.NewFromString(closeStr)
		if err != nil {
			return nil, fmt.Errorf("binance: kline %d: parsing close: %w", i, err)
		}
		out = append(out, Kline{OpenTime: time.UnixMilli(int64(openTime)).UTC(), Close: price})
	}
	return out, nil
}
