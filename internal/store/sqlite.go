package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"signalbot/internal/backtest"
	"signalbot/internal/domain"
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at       TEXT    NOT NULL,
	symbol           TEXT    NOT NULL,
	advisor          TEXT    NOT NULL,
	start_date       TEXT    NOT NULL,
	end_date         TEXT    NOT NULL,
	initial_capital  REAL    NOT NULL,
	commission_pct   REAL    NOT NULL,
	position_size    REAL    NOT NULL,
	min_confidence   INTEGER NOT NULL,
	final_value      REAL    NOT NULL,
	total_return     REAL    NOT NULL,
	total_return_pct REAL    NOT NULL,
	sharpe_ratio     REAL    NOT NULL,
	max_drawdown     REAL    NOT NULL,
	win_rate         REAL    NOT NULL,
	total_trades     INTEGER NOT NULL,
	winning_trades   INTEGER NOT NULL,
	losing_trades    INTEGER NOT NULL,
	avg_win          REAL    NOT NULL,
	avg_loss         REAL    NOT NULL,
	total_commission REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS run_trades (
	run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	date            TEXT    NOT NULL,
	symbol          TEXT    NOT NULL,
	action          TEXT    NOT NULL,
	price           REAL    NOT NULL,
	shares          REAL    NOT NULL,
	value           REAL    NOT NULL,
	commission      REAL    NOT NULL,
	cash_before     REAL    NOT NULL,
	cash_after      REAL    NOT NULL,
	portfolio_value REAL    NOT NULL,
	confidence      INTEGER NOT NULL,
	reason          TEXT    NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS run_values (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	date   TEXT    NOT NULL,
	value  REAL    NOT NULL,
	PRIMARY KEY (run_id, date)
);
`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun records a completed backtest (summary, trade log, and daily value
// series) in one transaction and returns the new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, res *backtest.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ins, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			created_at, symbol, advisor, start_date, end_date,
			initial_capital, commission_pct, position_size, min_confidence,
			final_value, total_return, total_return_pct, sharpe_ratio,
			max_drawdown, win_rate, total_trades, winning_trades,
			losing_trades, avg_win, avg_loss, total_commission
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		res.Config.Symbol,
		res.Advisor,
		res.Config.Start.Format(backtest.DateFormat),
		res.Config.End.Format(backtest.DateFormat),
		res.Config.InitialCapital,
		res.Config.CommissionPct,
		res.Config.PositionSize,
		res.Config.MinConfidence,
		res.FinalValue,
		res.TotalReturn,
		res.TotalReturnPct,
		res.SharpeRatio,
		res.MaxDrawdown,
		res.WinRate,
		res.TotalTrades,
		res.WinningTrades,
		res.LosingTrades,
		res.AvgWin,
		res.AvgLoss,
		res.TotalCommission,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := ins.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, t := range res.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_trades (
				run_id, seq, date, symbol, action, price, shares, value,
				commission, cash_before, cash_after, portfolio_value,
				confidence, reason
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i,
			t.Date.Format(backtest.DateFormat),
			t.Symbol, string(t.Action), t.Price, t.Shares, t.Value,
			t.Commission, t.CashBefore, t.CashAfter, t.PortfolioValue,
			t.Confidence, t.Reason,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	for _, v := range res.DailyValues {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_values (run_id, date, value) VALUES (?, ?, ?)`,
			runID, v.Date.Format(backtest.DateFormat), v.Value,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting value point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns summaries of all recorded runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, symbol, advisor, start_date, end_date,
			initial_capital, final_value, total_return_pct, sharpe_ratio,
			max_drawdown, win_rate, total_trades
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			sum                         RunSummary
			createdAt, startStr, endStr string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Symbol, &sum.Advisor,
			&startStr, &endStr, &sum.InitialCapital, &sum.FinalValue,
			&sum.TotalReturnPct, &sum.SharpeRatio, &sum.MaxDrawdown,
			&sum.WinRate, &sum.TotalTrades); err != nil {
			return nil, err
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		sum.Start, _ = time.Parse(backtest.DateFormat, startStr)
		sum.End, _ = time.Parse(backtest.DateFormat, endStr)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// GetRun reloads a full backtest result by run ID. It returns sql.ErrNoRows
// when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*backtest.Result, error) {
	var (
		res              backtest.Result
		startStr, endStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, advisor, start_date, end_date, initial_capital,
			commission_pct, position_size, min_confidence, final_value,
			total_return, total_return_pct, sharpe_ratio, max_drawdown,
			win_rate, total_trades, winning_trades, losing_trades,
			avg_win, avg_loss, total_commission
		FROM runs WHERE id = ?`, id,
	).Scan(&res.Config.Symbol, &res.Advisor, &startStr, &endStr,
		&res.Config.InitialCapital, &res.Config.CommissionPct,
		&res.Config.PositionSize, &res.Config.MinConfidence,
		&res.FinalValue, &res.TotalReturn, &res.TotalReturnPct,
		&res.SharpeRatio, &res.MaxDrawdown, &res.WinRate,
		&res.TotalTrades, &res.WinningTrades, &res.LosingTrades,
		&res.AvgWin, &res.AvgLoss, &res.TotalCommission)
	if err != nil {
		return nil, err
	}
	res.Config.Start, _ = time.Parse(backtest.DateFormat, startStr)
	res.Config.End, _ = time.Parse(backtest.DateFormat, endStr)

	trades, err := s.runTrades(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Trades = trades

	values, err := s.runValues(ctx, id)
	if err != nil {
		return nil, err
	}
	res.DailyValues = values

	return &res, nil
}

func (s *SQLiteStore) runTrades(ctx context.Context, id int64) ([]backtest.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, symbol, action, price, shares, value, commission,
			cash_before, cash_after, portfolio_value, confidence, reason
		FROM run_trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []backtest.Trade
	for rows.Next() {
		var (
			t               backtest.Trade
			dateStr, action string
		)
		if err := rows.Scan(&dateStr, &t.Symbol, &action, &t.Price,
			&t.Shares, &t.Value, &t.Commission, &t.CashBefore,
			&t.CashAfter, &t.PortfolioValue, &t.Confidence,
			&t.Reason); err != nil {
			return nil, err
		}
		t.Date, _ = time.Parse(backtest.DateFormat, dateStr)
		t.Action = domain.Recommendation(action)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) runValues(ctx context.Context, id int64) ([]backtest.ValuePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, value FROM run_values WHERE run_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []backtest.ValuePoint
	for rows.Next() {
		var (
			v       backtest.ValuePoint
			dateStr string
		)
		if err := rows.Scan(&dateStr, &v.Value); err != nil {
			return nil, err
		}
		v.Date, _ = time.Parse(backtest.DateFormat, dateStr)
		values = append(values, v)
	}
	return values, rows.Err()
}
