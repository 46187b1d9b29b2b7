package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/dipper/internal/core"
	"github.com/newthinker/dipper/internal/ledger"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Decimals and timestamps are stored as TEXT so values round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    started_at       TEXT    NOT NULL,
    finished_at      TEXT    NOT NULL,
    source           TEXT    NOT NULL DEFAULT '',
    client           TEXT    NOT NULL DEFAULT '',
    status           TEXT    NOT NULL,
    stop_reason      TEXT    NOT NULL DEFAULT '',
    ticks            INTEGER NOT NULL DEFAULT 0,
    last_tick        INTEGER NOT NULL DEFAULT 0,
    last_price       TEXT    NOT NULL DEFAULT '0',
    open_positions   INTEGER NOT NULL DEFAULT 0,
    closed_positions INTEGER NOT NULL DEFAULT 0,
    realized_profit  TEXT    NOT NULL DEFAULT '0',
    total_profit     TEXT    NOT NULL DEFAULT '0',
    peak_buy_amount  TEXT    NOT NULL DEFAULT '0',
    report_path      TEXT    NOT NULL DEFAULT '',
    error            TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS positions (
    run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position_id INTEGER NOT NULL,
    amount      TEXT    NOT NULL,
    open_rate   TEXT    NOT NULL,
    open_tick   INTEGER NOT NULL,
    close_rate  TEXT,
    close_tick  INTEGER,
    PRIMARY KEY (run_id, position_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status  ON runs(status);
`

// Fixed width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on SQLite (pure Go driver).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and applies the
// schema. ":memory:" gives a private in-memory database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun upserts the run and replaces its positions in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, positions []ledger.Position) error {
	if run.ID == "" {
		return fmt.Errorf("journal: run id is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, source, client, status, stop_reason,
			ticks, last_tick, last_price, open_positions, closed_positions,
			realized_profit, total_profit, peak_buy_amount, report_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			source = excluded.source,
			client = excluded.client,
			status = excluded.status,
			stop_reason = excluded.stop_reason,
			ticks = excluded.ticks,
			last_tick = excluded.last_tick,
			last_price = excluded.last_price,
			open_positions = excluded.open_positions,
			closed_positions = excluded.closed_positions,
			realized_profit = excluded.realized_profit,
			total_profit = excluded.total_profit,
			peak_buy_amount = excluded.peak_buy_amount,
			report_path = excluded.report_path,
			error = excluded.error`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Source, run.Client,
		run.Status, run.StopReason, run.Ticks, run.LastTick, run.LastPrice.String(),
		run.OpenPositions, run.ClosedPositions, run.RealizedProfit.String(),
		run.TotalProfit.String(), run.PeakBuyAmount.String(), run.ReportPath, run.Error,
	); err != nil {
		return fmt.Errorf("journal: upsert run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("journal: clear positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (run_id, position_id, amount, open_rate, open_tick, close_rate, close_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("journal: prepare positions: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		var closeRate sql.NullString
		var closeTick sql.NullInt64
		if p.Closure != nil {
			closeRate = sql.NullString{String: p.Closure.Rate.String(), Valid: true}
			closeTick = sql.NullInt64{Int64: int64(p.Closure.TickNumber), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, int(p.ID), p.Amount.String(),
			p.OpenRate.String(), p.OpenTickNumber, closeRate, closeTick); err != nil {
			return fmt.Errorf("journal: insert position %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, source, client, status, stop_reason,
	ticks, last_tick, last_price, open_positions, closed_positions,
	realized_profit, total_profit, peak_buy_amount, report_path, error`

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("run %s", id))
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "started_at <= ?")
		args = append(args, formatTime(filter.To))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at DESC, id`
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Positions returns the positions recorded for runID.
func (s *SQLiteStore) Positions(ctx context.Context, runID string) ([]ledger.Position, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position_id, amount, open_rate, open_tick, close_rate, close_tick
		FROM positions WHERE run_id = ? ORDER BY position_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: list positions: %w", err)
	}
	defer rows.Close()

	positions := []ledger.Position{}
	for rows.Next() {
		var (
			id               int
			amount, openRate string
			openTick         int
			closeRate        sql.NullString
			closeTick        sql.NullInt64
		)
		if err := rows.Scan(&id, &amount, &openRate, &openTick, &closeRate, &closeTick); err != nil {
			return nil, fmt.Errorf("journal: scan position: %w", err)
		}
		p := ledger.Position{ID: ledger.PositionID(id), OpenTickNumber: openTick}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("journal: position %d amount: %w", id, err)
		}
		if p.OpenRate, err = decimal.NewFromString(openRate); err != nil {
			return nil, fmt.Errorf("journal: position %d open rate: %w", id, err)
		}
		if closeRate.Valid {
			rate, err := decimal.NewFromString(closeRate.String)
			if err != nil {
				return nil, fmt.Errorf("journal: position %d close rate: %w", id, err)
			}
			p.Closure = &ledger.Closure{Rate: rate, TickNumber: int(closeTick.Int64)}
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                                 Run
		startedAt, finishedAt               string
		lastPrice, realized, total, peakBuy string
	)
	err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Source, &run.Client, &run.Status,
		&run.StopReason, &run.Ticks, &run.LastTick, &lastPrice, &run.OpenPositions,
		&run.ClosedPositions, &realized, &total, &peakBuy, &run.ReportPath, &run.Error)
	if err != nil {
		return Run{}, err
	}

	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Run{}, fmt.Errorf("journal: run %s started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return Run{}, fmt.Errorf("journal: run %s finished_at: %w", run.ID, err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&run.LastPrice, lastPrice},
		{&run.RealizedProfit, realized},
		{&run.TotalProfit, total},
		{&run.PeakBuyAmount, peakBuy},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return Run{}, fmt.Errorf("journal: run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
