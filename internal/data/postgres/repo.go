// Package postgres persists bar histories and backtest results. It is
// optional infrastructure: the engine runs fully from CSV input when no DSN
// is configured.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sawpanic/signalrun/internal/domain/bars"
	"github.com/sawpanic/signalrun/internal/sim"
)

// Open connects with the pq driver and verifies the connection.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// BarRepo stores and replays per-instrument bar histories.
type BarRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBarRepo creates a bar repository with a per-query timeout.
func NewBarRepo(db *sqlx.DB, timeout time.Duration) *BarRepo {
	return &BarRepo{db: db, timeout: timeout}
}

// SaveBars upserts one instrument's bars keyed by (symbol, ts).
func (r *BarRepo) SaveBars(ctx context.Context, symbol string, seq []bars.Bar) error {
	if err := bars.ValidateSequence(seq); err != nil {
		return fmt.Errorf("invalid bar sequence: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bars (symbol, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, ts) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume`

	for _, b := range seq {
		if _, err := tx.ExecContext(ctx, query,
			symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar %s@%s: %w", symbol, b.Timestamp, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bars: %w", err)
	}
	return nil
}

// LoadBars returns the instrument's bars in [from, to] ascending. Zero time
// bounds are open-ended.
func (r *BarRepo) LoadBars(ctx context.Context, symbol string, from, to time.Time) ([]bars.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = $1
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts ASC`

	var fromArg, toArg interface{}
	if !from.IsZero() {
		fromArg = from
	}
	if !to.IsZero() {
		toArg = to
	}

	rows, err := r.db.QueryxContext(ctx, query, symbol, fromArg, toArg)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var seq []bars.Bar
	for rows.Next() {
		var b bars.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		seq = append(seq, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	return seq, nil
}

// Symbols lists the instruments present in the store.
func (r *BarRepo) Symbols(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var symbols []string
	if err := r.db.SelectContext(ctx, &symbols,
		`SELECT DISTINCT symbol FROM bars ORDER BY symbol`); err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return symbols, nil
}

// ResultRepo archives completed backtest runs.
type ResultRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewResultRepo creates a result repository with a per-query timeout.
func NewResultRepo(db *sqlx.DB, timeout time.Duration) *ResultRepo {
	return &ResultRepo{db: db, timeout: timeout}
}

// SaveResult stores one instrument's result under its run ID. The full
// result, equity curve included, lands in a jsonb column; the headline
// metrics are broken out for querying.
func (r *ResultRepo) SaveResult(ctx context.Context, runID string, result sim.BacktestResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		INSERT INTO backtest_results
		(run_id, symbol, trade_count, win_rate_pct, profit_factor,
		 prediction_accuracy_pct, total_return_pct, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, symbol) DO UPDATE SET
			trade_count = EXCLUDED.trade_count,
			win_rate_pct = EXCLUDED.win_rate_pct,
			profit_factor = EXCLUDED.profit_factor,
			prediction_accuracy_pct = EXCLUDED.prediction_accuracy_pct,
			total_return_pct = EXCLUDED.total_return_pct,
			detail = EXCLUDED.detail`

	if _, err := r.db.ExecContext(ctx, query,
		runID, result.Symbol, result.TradeCount, result.WinRatePct,
		result.ProfitFactor, result.PredictionAccuracyPct, result.TotalReturnPct,
		payload); err != nil {
		return fmt.Errorf("insert result %s/%s: %w", runID, result.Symbol, err)
	}
	return nil
}

// LoadResult fetches one archived result.
func (r *ResultRepo) LoadResult(ctx context.Context, runID, symbol string) (sim.BacktestResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var payload []byte
	err := r.db.GetContext(ctx, &payload,
		`SELECT detail FROM backtest_results WHERE run_id = $1 AND symbol = $2`,
		runID, symbol)
	if err == sql.ErrNoRows {
		return sim.BacktestResult{}, fmt.Errorf("no result for run %s symbol %s", runID, symbol)
	}
	if err != nil {
		return sim.BacktestResult{}, fmt.Errorf("query result: %w", err)
	}

	var result sim.BacktestResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return sim.BacktestResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
