// Package orders persists the append-only journal of executed orders.
package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id     TEXT NOT NULL,
	date   TEXT NOT NULL,
	ticker TEXT NOT NULL,
	qty    REAL,
	price  REAL
);`

// Row is one journaled executed order.
type Row struct {
	ID     string
	Date   string
	Ticker string
	Qty    float64
	Price  float64
}

// Store is the sqlite-backed executed-order journal.
type Store struct {
	db *sql.DB
}

// NewStore creates the orders table if missing.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, storage.Unavailable("create orders schema", err)
	}
	return &Store{db: db}, nil
}

// Append journals one executed order under the given calendar day and returns
// the generated order id.
func (s *Store) Append(ctx context.Context, day time.Time, order domain.Order) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders(id, date, ticker, qty, price) VALUES (?, ?, ?, ?, ?)`,
		id, day.Format(domain.DateLayout), order.Ticker, order.Qty, order.Price)
	if err != nil {
		return "", storage.Unavailable("append order", err)
	}
	return id, nil
}

// LatestBatch returns every order journaled on the most recent date, in
// insertion order. Used as prompt context for the next decision.
func (s *Store) LatestBatch(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, ticker, qty, price FROM orders
		WHERE date = (SELECT MAX(date) FROM orders)
		ORDER BY rowid`)
	if err != nil {
		return nil, storage.Unavailable("query latest orders", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Date, &r.Ticker, &r.Qty, &r.Price); err != nil {
			return nil, storage.Unavailable("scan order row", err)
		}
		r.Ticker = domain.CleanTicker(r.Ticker)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate order rows", err)
	}
	return out, nil
}
