package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidOrder marks orders that fail structural or business validation.
// Callers match it with errors.Is; the wrapped message carries the reason.
var ErrInvalidOrder = errors.New("invalid order")

// Order is a single executed trade instruction produced by the decision
// source. Positive Qty buys, negative Qty sells, zero is a legal no-op.
type Order struct {
	Ticker string  `json:"ticker"`
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
}

// NewOrder normalizes the ticker (stray quotes and whitespace are a known
// artifact of the decision source) and validates the order structurally.
func NewOrder(ticker string, qty, price float64) (Order, error) {
	ticker = CleanTicker(ticker)
	if ticker == "" {
		return Order{}, errors.Wrap(ErrInvalidOrder, "ticker must not be empty")
	}
	if price < 0 {
		return Order{}, errors.Wrapf(ErrInvalidOrder, "negative price %f for %s", price, ticker)
	}

	return Order{Ticker: ticker, Qty: qty, Price: price}, nil
}

// Normalize re-runs ticker cleanup and validation on a decoded order.
func (o Order) Normalize() (Order, error) {
	return NewOrder(o.Ticker, o.Qty, o.Price)
}

// Notional returns the cash impact of the order: positive for buys,
// negative for sells.
func (o Order) Notional() float64 {
	return o.Qty * o.Price
}

// CleanTicker strips whitespace and stray single/double quotes around an
// instrument identifier, preserving case.
func CleanTicker(t string) string {
	return strings.Trim(strings.TrimSpace(t), `"'`)
}
