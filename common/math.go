package common

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundTo rounds v half away from zero to places decimal digits,
// working on the shortest decimal form of v.
// NaN and infinities are returned unchanged.
func RoundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
