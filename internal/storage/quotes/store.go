// Package quotes persists daily OHLCV bars keyed by (date, ticker).
package quotes

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS stocks_info (
	date   TEXT NOT NULL,
	ticker TEXT NOT NULL,
	open   REAL,
	high   REAL,
	low    REAL,
	close  REAL,
	volume INTEGER,
	PRIMARY KEY (date, ticker)
);`

// Store is the sqlite-backed daily quote store.
type Store struct {
	db *sql.DB
}

// NewStore creates the stocks_info table if missing.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, storage.Unavailable("create stocks_info schema", err)
	}
	return &Store{db: db}, nil
}

// UpsertBatch writes the given bars in one transaction, replacing rows with
// the same (date, ticker) key, and returns the number of bars written.
func (s *Store) UpsertBatch(ctx context.Context, bars []domain.DailyQuote) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storage.Unavailable("begin quotes transaction", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stocks_info(date, ticker, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, ticker) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		tx.Rollback()
		return 0, storage.Unavailable("prepare quotes upsert", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err := stmt.ExecContext(ctx, bar.DateString(), bar.Ticker,
			bar.Open.InexactFloat64(), bar.High.InexactFloat64(),
			bar.Low.InexactFloat64(), bar.Close.InexactFloat64(), bar.Volume)
		if err != nil {
			tx.Rollback()
			return 0, storage.Unavailable("upsert quote bar", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storage.Unavailable("commit quotes transaction", err)
	}
	return len(bars), nil
}

// Latest returns the most recent bar for a ticker, if any.
func (s *Store) Latest(ctx context.Context, ticker string) (domain.DailyQuote, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, ticker, open, high, low, close, volume FROM stocks_info
		WHERE ticker = ? ORDER BY date DESC LIMIT 1`, ticker)
	return scanBar(row)
}

// CloseHistory returns up to limit closing prices for a ticker, oldest first,
// as inputs for indicator computation.
func (s *Store) CloseHistory(ctx context.Context, ticker string, limit int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT close FROM (
			SELECT date, close FROM stocks_info
			WHERE ticker = ? ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, ticker, limit)
	if err != nil {
		return nil, storage.Unavailable("query close history", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c sql.NullFloat64
		if err := rows.Scan(&c); err != nil {
			return nil, storage.Unavailable("scan close price", err)
		}
		closes = append(closes, c.Float64)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate close history", err)
	}
	return closes, nil
}

func scanBar(row *sql.Row) (domain.DailyQuote, bool, error) {
	var dateStr, ticker string
	var open, high, low, closePrice sql.NullFloat64
	var volume sql.NullInt64

	err := row.Scan(&dateStr, &ticker, &open, &high, &low, &closePrice, &volume)
	if err == sql.ErrNoRows {
		return domain.DailyQuote{}, false, nil
	}
	if err != nil {
		return domain.DailyQuote{}, false, storage.Unavailable("scan quote bar", err)
	}

	day, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		return domain.DailyQuote{}, false, storage.Unavailable("parse quote date", err)
	}

	return domain.DailyQuote{
		Date:   day,
		Ticker: ticker,
		Open:   decimal.NewFromFloat(open.Float64),
		High:   decimal.NewFromFloat(high.Float64),
		Low:    decimal.NewFromFloat(low.Float64),
		Close:  decimal.NewFromFloat(closePrice.Float64),
		Volume: volume.Int64,
	}, true, nil
}
