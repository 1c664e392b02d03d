package domain

import "math"

// Tolerance is the absolute and relative tolerance used for all quantity and
// price comparisons in the ledger. A position whose quantity is within
// Tolerance of zero does not exist.
const Tolerance = 1e-9

// EqualWithinTolerance reports whether two floats are equal under combined
// absolute and relative tolerance. The same comparison is used by the order
// application engine, the reconciler and their tests so floating-point noise
// never shows up as a spurious "changed" row.
func EqualWithinTolerance(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	diff := math.Abs(a - b)
	return diff <= math.Max(Tolerance, Tolerance*math.Max(math.Abs(a), math.Abs(b)))
}

// IsZeroQty reports whether a quantity is zero within Tolerance.
func IsZeroQty(qty float64) bool {
	return math.Abs(qty) < Tolerance
}
