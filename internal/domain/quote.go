package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyQuote is one end-of-day bar for an instrument as returned by the
// quote provider.
type DailyQuote struct {
	Date   time.Time
	Ticker string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// DateString renders the bar's calendar day.
func (q DailyQuote) DateString() string {
	return q.Date.Format(DateLayout)
}
