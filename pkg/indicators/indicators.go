// Package indicators computes the technical indicators included in the
// decision prompt (SMA, EMA, RSI) from daily closing prices.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

// SMA calculates the Simple Moving Average for the given period. The result
// is shorter than the input by the indicator warmup.
func SMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points for SMA: need %d, got %d", period, len(closes))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes))), nil
}

// EMA calculates the Exponential Moving Average for the given period.
func EMA(closes []float64, period int) ([]float64, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points for EMA: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes))), nil
}

// RSI calculates the Relative Strength Index for the given period.
func RSI(closes []float64, period int) ([]float64, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes))), nil
}

// Snapshot holds the latest indicator values for one instrument.
type Snapshot struct {
	SMA20 float64
	RSI14 float64
}

// LatestSnapshot computes the most recent SMA20 and RSI14 values from the
// close history, oldest first. It returns false when the history is too
// short for either indicator.
func LatestSnapshot(closes []float64) (Snapshot, bool) {
	sma, err := SMA(closes, 20)
	if err != nil || len(sma) == 0 {
		return Snapshot{}, false
	}

	rsi, err := RSI(closes, 14)
	if err != nil || len(rsi) == 0 {
		return Snapshot{}, false
	}

	return Snapshot{
		SMA20: sma[len(sma)-1],
		RSI14: rsi[len(rsi)-1],
	}, true
}
