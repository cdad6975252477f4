package storage

// archive.go: archivo offline del backend.
//
// Guarda velas, catálogo de estrategias y runs ya ejecutados para poder
// reproducirlos sin backend:
//   - `candles`: una fila por (symbol, interval, time), UPSERT.
//   - `strategies`: catálogo en el orden en que se guardó.
//   - `runs` + `trades`: un run por (symbol, strategy, params, ventana); el
//     último guardado gana.
//   - Prune al abrir: runs de más de 90 días.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/chartsync/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS candles (
    symbol   TEXT NOT NULL,
    interval TEXT NOT NULL,
    time     TEXT NOT NULL,
    open     REAL NOT NULL DEFAULT 0,
    high     REAL NOT NULL DEFAULT 0,
    low      REAL NOT NULL DEFAULT 0,
    close    REAL NOT NULL DEFAULT 0,
    volume   REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, interval, time)
);

CREATE TABLE IF NOT EXISTS strategies (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    default_params TEXT NOT NULL DEFAULT '{}',
    position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS runs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol        TEXT NOT NULL,
    strategy_id   TEXT NOT NULL,
    params        TEXT NOT NULL,
    start_at      TEXT NOT NULL,
    end_at        TEXT NOT NULL,
    interval      TEXT NOT NULL,
    has_candles   INTEGER NOT NULL DEFAULT 0,
    final_balance REAL NOT NULL DEFAULT 0,
    total_return  REAL NOT NULL DEFAULT 0,
    total_trades  INTEGER NOT NULL DEFAULT 0,
    win_rate      REAL,
    max_drawdown  REAL,
    created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    time        TEXT NOT NULL,
    side        TEXT NOT NULL,
    price       REAL NOT NULL DEFAULT 0,
    quantity    REAL NOT NULL DEFAULT 0,
    reason      TEXT NOT NULL DEFAULT '',
    pnl_percent REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_lookup ON runs(symbol, strategy_id, start_at, end_at);
`

const retentionRuns = 90 * 24 * time.Hour

// ErrRunNotArchived se devuelve cuando no hay un run guardado para la petición.
var ErrRunNotArchived = errors.New("backtest run not archived")

// Archive implementa ports.Backend y ports.StatusProvider sobre SQLite (pure Go).
type Archive struct {
	db *sql.DB
}

// NewArchive abre (o crea) el archivo en dsn. ":memory:" para tests.
func NewArchive(dsn string) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewArchive: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewArchive: apply schema: %w", err)
	}

	a := &Archive{db: db}
	a.pruneOld(context.Background())
	return a, nil
}

// Close cierra la base de datos.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveCandles hace upsert de las velas de key.
func (a *Archive) SaveCandles(ctx context.Context, key domain.SeriesKey, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveCandles: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, interval, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, interval, time) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("storage.SaveCandles: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, key.Symbol, key.Interval.String(), domain.FormatDateTime(c.Time),
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("storage.SaveCandles: %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// GetCandles devuelve las velas archivadas en orden ascendente.
func (a *Archive) GetCandles(ctx context.Context, symbol string, iv domain.Interval) ([]domain.Candle, error) {
	return a.candles(ctx, symbol, iv, "", "")
}

func (a *Archive) candles(ctx context.Context, symbol string, iv domain.Interval, from, to string) ([]domain.Candle, error) {
	q := `SELECT time, open, high, low, close, volume FROM candles WHERE symbol = ? AND interval = ?`
	args := []any{symbol, iv.String()}
	if from != "" {
		q += ` AND time >= ? AND time <= ?`
		args = append(args, from, to)
	}
	q += ` ORDER BY time ASC`

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetCandles: %w", err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var ts string
		var c domain.Candle
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("storage.GetCandles: scan: %w", err)
		}
		if c.Time, err = domain.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("storage.GetCandles: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveStrategies reemplaza el catálogo.
func (a *Archive) SaveStrategies(ctx context.Context, strategies []domain.Strategy) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveStrategies: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM strategies`); err != nil {
		return fmt.Errorf("storage.SaveStrategies: clear: %w", err)
	}
	for i, s := range strategies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO strategies (id, name, description, default_params, position) VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.Description, s.DefaultParams, i,
		); err != nil {
			return fmt.Errorf("storage.SaveStrategies: %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// GetStrategies devuelve el catálogo en el orden guardado.
func (a *Archive) GetStrategies(ctx context.Context) ([]domain.Strategy, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, name, description, default_params FROM strategies ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetStrategies: %w", err)
	}
	defer rows.Close()

	var out []domain.Strategy
	for rows.Next() {
		var s domain.Strategy
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.DefaultParams); err != nil {
			return nil, fmt.Errorf("storage.GetStrategies: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveRun archiva run bajo la clave de req. Las velas del run (si trae) se
// guardan en la tabla de velas con el intervalo de la petición.
func (a *Archive) SaveRun(ctx context.Context, req domain.RunRequest, run domain.BacktestRun) error {
	if err := req.Normalize(); err != nil {
		return fmt.Errorf("storage.SaveRun: %w", err)
	}
	if err := a.SaveCandles(ctx, domain.SeriesKey{Symbol: req.Symbol, Interval: req.Interval}, run.Candles()); err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	s := run.Summary
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (symbol, strategy_id, params, start_at, end_at, interval, has_candles,
			final_balance, total_return, total_trades, win_rate, max_drawdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Symbol, req.StrategyID, req.Params,
		domain.FormatDateTime(req.Start), domain.FormatDateTime(req.End), req.Interval.String(),
		len(run.Candles()) > 0,
		s.FinalBalance, s.TotalReturnPercent, s.TotalTrades,
		nullFloat(s.WinRate), nullFloat(s.MaxDrawdown), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.SaveRun: run id: %w", err)
	}

	for i, tr := range run.Trades() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trades (run_id, seq, time, side, price, quantity, reason, pnl_percent)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, domain.FormatDateTime(tr.Time), tr.Side.String(),
			tr.Price, tr.Quantity, tr.Reason, tr.PnLPercent,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// RunBacktest reproduce el último run archivado para req.
func (a *Archive) RunBacktest(ctx context.Context, req domain.RunRequest) (domain.BacktestRun, error) {
	if err := req.Normalize(); err != nil {
		return domain.BacktestRun{}, fmt.Errorf("storage.RunBacktest: %w", err)
	}
	start, end := domain.FormatDateTime(req.Start), domain.FormatDateTime(req.End)

	var (
		runID      int64
		ivName     string
		hasCandles bool
		summary    domain.Summary
		winRate    sql.NullFloat64
		maxDD      sql.NullFloat64
	)
	err := a.db.QueryRowContext(ctx, `
		SELECT id, interval, has_candles, final_balance, total_return, total_trades, win_rate, max_drawdown
		FROM runs
		WHERE symbol = ? AND strategy_id = ? AND params = ? AND start_at = ? AND end_at = ?
		ORDER BY id DESC LIMIT 1`,
		req.Symbol, req.StrategyID, req.Params, start, end,
	).Scan(&runID, &ivName, &hasCandles, &summary.FinalBalance, &summary.TotalReturnPercent,
		&summary.TotalTrades, &winRate, &maxDD)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BacktestRun{}, fmt.Errorf("storage.RunBacktest: %s %s %s..%s: %w",
			req.StrategyID, req.Symbol, start, end, ErrRunNotArchived)
	}
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("storage.RunBacktest: %w", err)
	}
	summary.WinRate = ptrFloat(winRate)
	summary.MaxDrawdown = ptrFloat(maxDD)

	trades, err := a.trades(ctx, runID)
	if err != nil {
		return domain.BacktestRun{}, err
	}

	// Solo los runs que traían velas propias las devuelven.
	var candles []domain.Candle
	if hasCandles {
		iv, err := domain.ParseInterval(ivName)
		if err != nil {
			return domain.BacktestRun{}, fmt.Errorf("storage.RunBacktest: %w", err)
		}
		if candles, err = a.candles(ctx, req.Symbol, iv, start, end); err != nil {
			return domain.BacktestRun{}, err
		}
	}

	slog.Debug("archive: run replayed", "symbol", req.Symbol, "strategy", req.StrategyID,
		"trades", len(trades), "candles", len(candles))
	return domain.NewBacktestRun(req.Symbol, req.StrategyID, req.Params, req.Start, req.End,
		candles, trades, summary), nil
}

func (a *Archive) trades(ctx context.Context, runID int64) ([]domain.TradeEvent, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT time, side, price, quantity, reason, pnl_percent
		FROM trades WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeEvent
	for rows.Next() {
		var ts, side string
		var tr domain.TradeEvent
		if err := rows.Scan(&ts, &side, &tr.Price, &tr.Quantity, &tr.Reason, &tr.PnLPercent); err != nil {
			return nil, fmt.Errorf("storage.trades: scan: %w", err)
		}
		if tr.Time, err = domain.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("storage.trades: %w", err)
		}
		if tr.Side, err = domain.ParseSide(side); err != nil {
			return nil, fmt.Errorf("storage.trades: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// KillSwitchStatus: el archivo no opera, así que el kill switch nunca está activo.
func (a *Archive) KillSwitchStatus(context.Context) (bool, error) {
	return false, nil
}

// SchedulerStatus: sin backend no hay scheduler.
func (a *Archive) SchedulerStatus(context.Context) (domain.SchedulerStatus, error) {
	return domain.SchedulerStatus{Fields: map[string]any{"source": "archive"}}, nil
}

// pruneOld elimina runs antiguos. Los errores se ignoran.
func (a *Archive) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	a.db.ExecContext(ctx, `DELETE FROM trades WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff)
	a.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func ptrFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
