package domain

import (
	"sort"
	"time"
)

// DateLayout is the calendar-day format used everywhere a date crosses the
// persistence boundary.
const DateLayout = "2006-01-02"

// Position is a holding in one instrument at a point in time. A zero Date
// means "unset"; it is stamped with the as-of date at persistence time.
// AvgPrice is the volume-weighted average cost basis and is meaningless when
// Qty is zero.
type Position struct {
	Date     time.Time
	Ticker   string
	Qty      float64
	AvgPrice float64
}

// HasDate reports whether the position carries an explicit date.
func (p Position) HasDate() bool {
	return !p.Date.IsZero()
}

// DateString renders the position date for persistence, or "" when unset.
func (p Position) DateString() string {
	if p.Date.IsZero() {
		return ""
	}
	return p.Date.Format(DateLayout)
}

// Portfolio is an immutable collection of positions, at most one per ticker,
// kept sorted by ticker for deterministic iteration and diffing.
type Portfolio struct {
	positions []Position
}

// NewPortfolio builds a portfolio from positions. Zero-quantity positions are
// dropped and the result is sorted by ticker. When the input carries several
// positions for the same ticker the last one wins; callers resolving
// duplicates from storage must order their input accordingly.
func NewPortfolio(positions []Position) Portfolio {
	byTicker := make(map[string]Position, len(positions))
	for _, pos := range positions {
		pos.Ticker = CleanTicker(pos.Ticker)
		if pos.Ticker == "" || IsZeroQty(pos.Qty) {
			continue
		}
		byTicker[pos.Ticker] = pos
	}

	out := make([]Position, 0, len(byTicker))
	for _, pos := range byTicker {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })

	return Portfolio{positions: out}
}

// Positions returns a copy of the held positions sorted by ticker.
func (p Portfolio) Positions() []Position {
	out := make([]Position, len(p.positions))
	copy(out, p.positions)
	return out
}

// Position returns the holding for a ticker, if any.
func (p Portfolio) Position(ticker string) (Position, bool) {
	for _, pos := range p.positions {
		if pos.Ticker == ticker {
			return pos, true
		}
	}
	return Position{}, false
}

// Tickers returns the held instrument identifiers sorted ascending.
func (p Portfolio) Tickers() []string {
	out := make([]string, len(p.positions))
	for i, pos := range p.positions {
		out[i] = pos.Ticker
	}
	return out
}

// Len returns the number of held positions.
func (p Portfolio) Len() int {
	return len(p.positions)
}
