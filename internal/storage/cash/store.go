// Package cash persists the one-row-per-date cash ledger.
package cash

import (
	"context"
	"database/sql"
	"time"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS cash (
	date                   TEXT PRIMARY KEY,
	amount                 REAL,
	total_portfolio_amount REAL
);`

// Store is the sqlite-backed cash ledger.
type Store struct {
	db *sql.DB
}

// NewStore creates the cash table if missing.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, storage.Unavailable("create cash schema", err)
	}
	return &Store{db: db}, nil
}

// Upsert writes one snapshot keyed by date: a later write for the same date
// replaces the earlier one. It performs no computation on the amount.
func (s *Store) Upsert(ctx context.Context, snapshot domain.CashSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	var total any
	if snapshot.TotalPortfolio != nil {
		total = *snapshot.TotalPortfolio
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash(date, amount, total_portfolio_amount)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			amount = excluded.amount,
			total_portfolio_amount = excluded.total_portfolio_amount`,
		snapshot.DateString(), snapshot.Amount, total)
	if err != nil {
		return storage.Unavailable("upsert cash snapshot", err)
	}
	return nil
}

// LatestBefore returns the most recent snapshot strictly before day, if any.
// A NULL persisted amount is reported as 0.
func (s *Store) LatestBefore(ctx context.Context, day time.Time) (domain.CashSnapshot, bool, error) {
	return s.query(ctx, `
		SELECT date, amount, total_portfolio_amount FROM cash
		WHERE date < ? ORDER BY date DESC LIMIT 1`,
		day.Format(domain.DateLayout))
}

// Latest returns the most recent snapshot, if any.
func (s *Store) Latest(ctx context.Context) (domain.CashSnapshot, bool, error) {
	return s.query(ctx, `
		SELECT date, amount, total_portfolio_amount FROM cash
		ORDER BY date DESC LIMIT 1`)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (domain.CashSnapshot, bool, error) {
	var dateStr string
	var amount, total sql.NullFloat64

	err := s.db.QueryRowContext(ctx, q, args...).Scan(&dateStr, &amount, &total)
	if err == sql.ErrNoRows {
		return domain.CashSnapshot{}, false, nil
	}
	if err != nil {
		return domain.CashSnapshot{}, false, storage.Unavailable("query cash snapshot", err)
	}

	day, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		return domain.CashSnapshot{}, false, storage.Unavailable("parse cash snapshot date", err)
	}

	snapshot := domain.CashSnapshot{Date: day, Amount: amount.Float64}
	if total.Valid {
		v := total.Float64
		snapshot.TotalPortfolio = &v
	}
	return snapshot, true, nil
}
