package storage

// sqlite.go: journal de auditoría de ciclos y órdenes.
//
// Solo escritura: el engine nunca lee de aquí para reconstruir su estado.
//   - `cycles`: una fila por ciclo con el resumen (sesión, contadores, balance).
//   - `orders`: una fila por orden enviada con la respuesta o el error.
//   - Prune automático al arrancar: filas con más de retention de antigüedad.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at       DATETIME NOT NULL,
    session          TEXT     NOT NULL,
    programs         INTEGER  NOT NULL DEFAULT 0,
    candidates       INTEGER  NOT NULL DEFAULT 0,
    intents          INTEGER  NOT NULL DEFAULT 0,
    orders_built     INTEGER  NOT NULL DEFAULT 0,
    orders_submitted INTEGER  NOT NULL DEFAULT 0,
    orders_failed    INTEGER  NOT NULL DEFAULT 0,
    cancelled        INTEGER  NOT NULL DEFAULT 0,
    closed           INTEGER  NOT NULL DEFAULT 0,
    balance          REAL     NOT NULL DEFAULT 0,
    duration_ms      INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_id        INTEGER NOT NULL REFERENCES cycles(id),
    created_at      DATETIME NOT NULL,
    client_order_id TEXT    NOT NULL,
    ticker          TEXT    NOT NULL,
    side            TEXT    NOT NULL,
    action          TEXT    NOT NULL,
    count           INTEGER NOT NULL,
    price           TEXT    NOT NULL,
    price_basis     REAL    NOT NULL DEFAULT 0,
    target_size     REAL    NOT NULL DEFAULT 0,
    expiration_ts   INTEGER NOT NULL DEFAULT 0,
    order_id        TEXT,
    status          TEXT,
    filled          INTEGER NOT NULL DEFAULT 0,
    remaining       INTEGER NOT NULL DEFAULT 0,
    error           TEXT
);

CREATE INDEX IF NOT EXISTS idx_cycles_at     ON cycles(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_cycle  ON orders(cycle_id);
CREATE INDEX IF NOT EXISTS idx_orders_ticker ON orders(ticker);
`

const defaultRetention = 30 * 24 * time.Hour

// SQLiteJournal implementa ports.Journal usando SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada, aplica el
// schema y borra filas más antiguas que retention (0 = 30 días).
func NewSQLiteJournal(path string, retention time.Duration) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	if retention <= 0 {
		retention = defaultRetention
	}
	j := &SQLiteJournal{db: db}
	if err := j.prune(context.Background(), time.Now().UTC().Add(-retention)); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// SaveCycle inserta el resumen del ciclo y devuelve su ID.
func (j *SQLiteJournal) SaveCycle(ctx context.Context, s domain.CycleSummary) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO cycles (started_at, session, programs, candidates, intents, orders_built,
		                     orders_submitted, orders_failed, cancelled, closed, balance, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StartedAt.UTC(), s.Session, s.Programs, s.Candidates, len(s.Intents), s.OrdersBuilt,
		s.OrdersSubmitted, s.OrdersFailed, s.Cancelled, s.Closed, s.Balance, s.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.SaveCycle: last insert id: %w", err)
	}
	return id, nil
}

// SaveOrder inserta una orden enviada. submitErr != nil registra el fallo.
func (j *SQLiteJournal) SaveOrder(ctx context.Context, cycleID int64, req domain.OrderRequest, res domain.OrderResult, submitErr error) error {
	var errText sql.NullString
	if submitErr != nil {
		errText = sql.NullString{String: submitErr.Error(), Valid: true}
	}
	if _, err := j.db.ExecContext(ctx,
		`INSERT INTO orders (cycle_id, created_at, client_order_id, ticker, side, action, count, price,
		                     price_basis, target_size, expiration_ts, order_id, status, filled, remaining, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycleID, time.Now().UTC(), req.ClientOrderID, req.Ticker, string(req.Side), req.Action, req.Count,
		req.PriceDollars, req.PriceBasis, req.TargetSize, req.ExpirationTS,
		nullIfEmpty(res.OrderID), nullIfEmpty(res.Status), res.FilledCount, res.RemainingCount, errText,
	); err != nil {
		return fmt.Errorf("storage.SaveOrder: insert %s: %w", req.Ticker, err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// prune elimina filas anteriores a cutoff.
func (j *SQLiteJournal) prune(ctx context.Context, cutoff time.Time) error {
	if _, err := j.db.ExecContext(ctx,
		`DELETE FROM orders WHERE cycle_id IN (SELECT id FROM cycles WHERE started_at < ?)`, cutoff); err != nil {
		return fmt.Errorf("storage.prune: orders: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, cutoff); err != nil {
		return fmt.Errorf("storage.prune: cycles: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
