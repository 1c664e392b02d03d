// Package positions persists the one-row-per-ticker holdings table. The
// table deliberately has no unique constraint: prior bugs or interrupted
// writes may leave duplicate rows per ticker, and the reconciler resolves
// them using the date and physical rowid ordering exposed here.
package positions

import (
	"context"
	"database/sql"
	"time"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	date      TEXT NOT NULL,
	ticker    TEXT NOT NULL,
	qty       REAL,
	avg_price REAL
);`

// Row is one persisted position row, including its physical rowid used to
// break ties between duplicate rows for the same ticker.
type Row struct {
	RowID    int64
	Date     string
	Ticker   string
	Qty      float64
	AvgPrice float64
}

// Rows is the row-level view the reconciler operates on inside one
// transaction. *Tx implements it against sqlite; tests implement it in
// memory.
type Rows interface {
	All(ctx context.Context) ([]Row, error)
	Insert(ctx context.Context, row Row) error
	Update(ctx context.Context, rowID int64, row Row) error
	DeleteRow(ctx context.Context, rowID int64) (int, error)
	DeleteTicker(ctx context.Context, ticker string) (int, error)
}

// Store is the sqlite-backed position store.
type Store struct {
	db *sql.DB
}

// NewStore creates the positions table if missing.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, storage.Unavailable("create positions schema", err)
	}
	return &Store{db: db}, nil
}

// Transact runs fn against a transactional row view. The transaction commits
// only when fn returns nil, so the reconciler's delete-then-upsert sequence is
// atomic for any external observer.
func (s *Store) Transact(ctx context.Context, fn func(rows Rows) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Unavailable("begin positions transaction", err)
	}

	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storage.Unavailable("commit positions transaction", err)
	}
	return nil
}

// Portfolio loads the persisted rows into a domain portfolio. Duplicate rows
// per ticker are resolved with the same winner rule the reconciler uses:
// greatest date string first, then greatest rowid.
func (s *Store) Portfolio(ctx context.Context) (domain.Portfolio, error) {
	var rows []Row
	err := s.Transact(ctx, func(view Rows) error {
		var err error
		rows, err = view.All(ctx)
		return err
	})
	if err != nil {
		return domain.Portfolio{}, err
	}

	winners := make(map[string]Row, len(rows))
	for _, row := range rows {
		current, ok := winners[row.Ticker]
		if !ok || Wins(row, current) {
			winners[row.Ticker] = row
		}
	}

	positions := make([]domain.Position, 0, len(winners))
	for _, row := range winners {
		var day time.Time
		if row.Date != "" {
			if parsed, err := time.Parse(domain.DateLayout, row.Date); err == nil {
				day = parsed
			}
		}
		positions = append(positions, domain.Position{
			Date:     day,
			Ticker:   row.Ticker,
			Qty:      row.Qty,
			AvgPrice: row.AvgPrice,
		})
	}

	return domain.NewPortfolio(positions), nil
}

// Wins reports whether candidate beats current for the same ticker: the
// lexicographically greatest date string wins, ties go to the latest physical
// write (greatest rowid).
func Wins(candidate, current Row) bool {
	if candidate.Date != current.Date {
		return candidate.Date > current.Date
	}
	return candidate.RowID > current.RowID
}

// Tx is the sqlite implementation of Rows.
type Tx struct {
	tx *sql.Tx
}

// All returns every persisted row in physical insertion order.
func (t *Tx) All(ctx context.Context) ([]Row, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT rowid, date, ticker, qty, avg_price FROM positions ORDER BY rowid`)
	if err != nil {
		return nil, storage.Unavailable("query positions", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var date sql.NullString
		var qty, avg sql.NullFloat64
		if err := rows.Scan(&r.RowID, &date, &r.Ticker, &qty, &avg); err != nil {
			return nil, storage.Unavailable("scan position row", err)
		}
		r.Date = date.String
		r.Qty = qty.Float64
		r.AvgPrice = avg.Float64
		r.Ticker = domain.CleanTicker(r.Ticker)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate position rows", err)
	}
	return out, nil
}

func (t *Tx) Insert(ctx context.Context, row Row) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO positions(date, ticker, qty, avg_price) VALUES (?, ?, ?, ?)`,
		row.Date, row.Ticker, row.Qty, row.AvgPrice)
	if err != nil {
		return storage.Unavailable("insert position row", err)
	}
	return nil
}

func (t *Tx) Update(ctx context.Context, rowID int64, row Row) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE positions SET date = ?, qty = ?, avg_price = ? WHERE rowid = ?`,
		row.Date, row.Qty, row.AvgPrice, rowID)
	if err != nil {
		return storage.Unavailable("update position row", err)
	}
	return nil
}

func (t *Tx) DeleteRow(ctx context.Context, rowID int64) (int, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM positions WHERE rowid = ?`, rowID)
	if err != nil {
		return 0, storage.Unavailable("delete position row", err)
	}
	return affected(res), nil
}

func (t *Tx) DeleteTicker(ctx context.Context, ticker string) (int, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM positions WHERE ticker = ?`, ticker)
	if err != nil {
		return 0, storage.Unavailable("delete position ticker", err)
	}
	return affected(res), nil
}

func affected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}
