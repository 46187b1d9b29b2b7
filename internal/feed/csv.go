package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/newthinker/dipper/internal/core"
	"github.com/shopspring/decimal"
)

// CSVConfig describes a rates file.
type CSVConfig struct {
	// PriceColumn is the zero-based column holding the price.
	PriceColumn int
	// SkipHeader drops the first record.
	SkipHeader bool
}

// DefaultCSVConfig matches files of the form "time,price" with a header row.
func DefaultCSVConfig() CSVConfig {
	return CSVConfig{PriceColumn: 1, SkipHeader: true}
}

// CSV streams ticks from CSV records, numbering them from 0. Blank lines are
// skipped and do not consume a tick number.
type CSV struct {
	reader *csv.Reader
	closer io.Closer
	config CSVConfig
	next   int
	line   int
}

// NewCSV reads ticks from r.
func NewCSV(r io.Reader, cfg CSVConfig) *CSV {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSV{reader: cr, config: cfg}
}

// OpenCSV opens a rates file. Close must be called when done.
func OpenCSV(path string, cfg CSVConfig) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rates file: %w", err)
	}
	c := NewCSV(f, cfg)
	c.closer = f
	return c, nil
}

// Next parses the next record into a tick.
func (c *CSV) Next(ctx context.Context) (core.Tick, error) {
	if err := ctx.Err(); err != nil {
		return core.Tick{}, err
	}

	for {
		record, err := c.reader.Read()
		if errors.Is(err, io.EOF) {
			return core.Tick{}, core.ErrFeedExhausted
		}
		if err != nil {
			return core.Tick{}, fmt.Errorf("reading rates: %w", err)
		}
		c.line++

		if c.line == 1 && c.config.SkipHeader {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if c.config.PriceColumn >= len(record) {
			return core.Tick{}, fmt.Errorf("line %d: no column %d", c.line, c.config.PriceColumn)
		}

		price, err := decimal.NewFromString(strings.TrimSpace(record[c.config.PriceColumn]))
		if err != nil {
			return core.Tick{}, fmt.Errorf("line %d: parsing price: %w", c.line, err)
		}
		if !price.IsPositive() {
			return core.Tick{}, core.WrapError(core.ErrTickInvalid,
				fmt.Errorf("line %d: price %s is not positive", c.line, price))
		}

		t := core.Tick{Number: c.next, Price: price}
		c.next++
		return t, nil
	}
}

// Close releases the underlying file, if any.
func (c *CSV) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// CSVWriter writes rates files in the "time,price" layout NewCSV reads with
// DefaultCSVConfig.
type CSVWriter struct {
	w       *csv.Writer
	started bool
}

// NewCSVWriter creates a writer. The header is written with the first row.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one observation.
func (c *CSVWriter) Write(at time.Time, price decimal.Decimal) error {
	if !c.started {
		if err := c.w.Write([]string{"time", "price"}); err != nil {
			return err
		}
		c.started = true
	}
	return c.w.Write([]string{at.UTC().Format(time.RFC3339), price.String()})
}

// Flush writes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
