package service

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundingPrecision is the number of decimal places reported for values and percentages.
const RoundingPrecision = 2

// round rounds a float64 value to RoundingPrecision decimal places, half away from zero.
//
// Example:
//
//	round(123.456789)  // returns 123.46
//	round(0.005)       // returns 0.01
//	round(1.994)       // returns 1.99
func round(value float64) float64 {
	return decimal.NewFromFloat(value).Round(RoundingPrecision).InexactFloat64()
}

// sumDecimal adds values exactly and returns the decimal total.
func sumDecimal(values ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

// withinTolerance reports whether a percentage total is 100 within tolerance.
func withinTolerance(total, tolerance float64) bool {
	return math.Abs(total-100) <= tolerance
}
