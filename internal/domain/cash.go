package domain

import (
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidSnapshot marks cash snapshots that cannot be persisted, currently
// only the missing-date case. It is a programmer error, fatal to the call.
var ErrInvalidSnapshot = errors.New("invalid cash snapshot")

// CashSnapshot is the uninvested cash balance for one calendar day. Later
// writes for the same date replace earlier ones. TotalPortfolio is optional
// and not computed by the ledger core.
type CashSnapshot struct {
	Date           time.Time
	Amount         float64
	TotalPortfolio *float64
}

// Validate checks that the snapshot can be keyed by date.
func (s CashSnapshot) Validate() error {
	if s.Date.IsZero() {
		return errors.Wrap(ErrInvalidSnapshot, "date must be set")
	}
	return nil
}

// DateString renders the snapshot's primary key.
func (s CashSnapshot) DateString() string {
	return s.Date.Format(DateLayout)
}
