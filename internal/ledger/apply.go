// Package ledger holds the pure portfolio accounting engine: folding a batch
// of executed orders onto a portfolio snapshot and computing the resulting
// cash balance. Nothing here touches storage.
package ledger

import (
	"math"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/folio/internal/domain"
)

// ApplyOrders folds a batch of executed orders onto a portfolio snapshot and
// returns the resulting portfolio, sorted by ticker. The function is pure and
// all-or-nothing: the first invalid order aborts the batch and no partial
// portfolio is returned. Position dates are preserved; stamping them is the
// reconciler's job at persistence time.
func ApplyOrders(portfolio domain.Portfolio, orders []domain.Order) (domain.Portfolio, error) {
	held := make(map[string]domain.Position, portfolio.Len())
	for _, pos := range portfolio.Positions() {
		held[pos.Ticker] = pos
	}

	for _, raw := range orders {
		order, err := raw.Normalize()
		if err != nil {
			return domain.Portfolio{}, err
		}
		if domain.IsZeroQty(order.Qty) {
			continue
		}

		existing, ok := held[order.Ticker]
		if !ok {
			if order.Qty < 0 {
				return domain.Portfolio{}, errors.Wrapf(domain.ErrInvalidOrder,
					"cannot sell %s: instrument not held", order.Ticker)
			}
			held[order.Ticker] = domain.Position{
				Ticker:   order.Ticker,
				Qty:      order.Qty,
				AvgPrice: order.Price,
			}
			continue
		}

		newQty := existing.Qty + order.Qty
		if order.Qty < 0 && newQty < -domain.Tolerance {
			return domain.Portfolio{}, errors.Wrapf(domain.ErrInvalidOrder,
				"cannot sell %f of %s: only %f held", -order.Qty, order.Ticker, existing.Qty)
		}

		if domain.IsZeroQty(newQty) {
			delete(held, order.Ticker)
			continue
		}

		updated := existing
		updated.Qty = newQty
		if order.Qty > 0 {
			// volume-weighted average cost basis, recomputed on buys only
			updated.AvgPrice = (existing.Qty*existing.AvgPrice + order.Qty*order.Price) / newQty
		}
		held[order.Ticker] = updated
	}

	out := make([]domain.Position, 0, len(held))
	for _, pos := range held {
		out = append(out, pos)
	}
	return domain.NewPortfolio(out), nil
}

// ComputeCashAfterOrders returns previousCash minus the signed notional of
// every order: buys reduce cash, sells increase it. NaN prior balances are
// treated as zero, matching the "no prior state" default.
func ComputeCashAfterOrders(previousCash float64, orders []domain.Order) float64 {
	if math.IsNaN(previousCash) {
		previousCash = 0
	}

	cash := previousCash
	for _, order := range orders {
		cash -= order.Notional()
	}
	return cash
}
