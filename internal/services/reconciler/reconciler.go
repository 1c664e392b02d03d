// Package reconciler converges the persisted positions table to a computed
// target portfolio with the minimal set of insert/update/delete operations.
// It is the only component that writes position rows, and it must tolerate a
// table already containing duplicate or stale rows from prior partial writes.
package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage/positions"
)

// Store runs a function against a transactional view of the positions table.
// The whole sync happens inside one transaction so the delete-then-upsert
// sequence is atomic for external observers.
type Store interface {
	Transact(ctx context.Context, fn func(rows positions.Rows) error) error
}

// Stats counts the writes performed by one sync run. A second run with the
// same target and no writes in between reports all zeros.
type Stats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
}

// Reconciler synchronizes persisted positions with target portfolios.
type Reconciler struct {
	store  Store
	logger *zap.Logger
}

// New creates a reconciler over the given position store.
func New(store Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, logger: logger}
}

// SyncPositions converges the persisted table to target in three passes:
//
//  1. deduplicate rows per ticker, keeping the winner (greatest date string,
//     then greatest rowid) and deleting the rest;
//  2. delete tickers absent from the target;
//  3. upsert each target position, stamping unset dates with asOf and
//     skipping rows already equal under the ledger float tolerance.
//
// After a successful call the table holds exactly one row per target ticker.
// The procedure is idempotent and converges on retry after an interrupted
// run.
func (r *Reconciler) SyncPositions(ctx context.Context, target domain.Portfolio, asOf time.Time) (Stats, error) {
	defaultDate := asOf.Format(domain.DateLayout)

	var stats Stats
	err := r.store.Transact(ctx, func(rows positions.Rows) error {
		all, err := rows.All(ctx)
		if err != nil {
			return err
		}

		// pass 1: single linear scan tracking the winning row per ticker
		winners := make(map[string]positions.Row, len(all))
		var stale []int64
		for _, row := range all {
			if row.Ticker == "" {
				continue
			}
			current, ok := winners[row.Ticker]
			if !ok {
				winners[row.Ticker] = row
				continue
			}
			if positions.Wins(row, current) {
				stale = append(stale, current.RowID)
				winners[row.Ticker] = row
			} else {
				stale = append(stale, row.RowID)
			}
		}
		for _, rowID := range stale {
			n, err := rows.DeleteRow(ctx, rowID)
			if err != nil {
				return err
			}
			stats.Deleted += n
		}

		// pass 2: drop tickers no longer held
		for ticker := range winners {
			if _, held := target.Position(ticker); held {
				continue
			}
			n, err := rows.DeleteTicker(ctx, ticker)
			if err != nil {
				return err
			}
			stats.Deleted += n
			delete(winners, ticker)
		}

		// pass 3: upsert the target positions
		for _, pos := range target.Positions() {
			desired := positions.Row{
				Date:     pos.DateString(),
				Ticker:   pos.Ticker,
				Qty:      pos.Qty,
				AvgPrice: pos.AvgPrice,
			}
			if desired.Date == "" {
				desired.Date = defaultDate
			}

			existing, ok := winners[pos.Ticker]
			if !ok {
				if err := rows.Insert(ctx, desired); err != nil {
					return err
				}
				stats.Inserted++
				continue
			}

			if existing.Date == desired.Date &&
				domain.EqualWithinTolerance(existing.Qty, desired.Qty) &&
				domain.EqualWithinTolerance(existing.AvgPrice, desired.AvgPrice) {
				continue
			}

			if err := rows.Update(ctx, existing.RowID, desired); err != nil {
				return err
			}
			stats.Updated++
		}

		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	r.logger.Debug("positions synced",
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("deleted", stats.Deleted),
		zap.Int("target_positions", target.Len()))

	return stats, nil
}
