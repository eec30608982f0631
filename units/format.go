package units

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// integerTolerance is how close to a whole number a value must be
// to render without a decimal.
const integerTolerance = 1e-9

// FormatNumber renders v with no decimals if it is within 1e-9 of an integer,
// otherwise with exactly one decimal digit. The decimal point is always '.'.
// Rounding is half away from zero on the shortest decimal form of v,
// so 10.05 renders as "10.1" rather than following the binary value down.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	r := math.Round(v)
	if math.Abs(v-r) < integerTolerance {
		if r == 0 {
			// No "-0".
			return "0"
		}
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(1)
}

// FormatMaxSpeed renders "Max: {n} {km/h|mph}".
func FormatMaxSpeed(v float64, s System) string {
	return "Max: " + FormatNumber(v) + " " + s.SpeedLabel()
}

// FormatDistance renders "Dist: {n} {km|mi}".
func FormatDistance(v float64, s System) string {
	return "Dist: " + FormatNumber(v) + " " + s.DistanceLabel()
}

// FormatAverageSpeed renders "Avg: {n} {km/h|mph}".
func FormatAverageSpeed(v float64, s System) string {
	return "Avg: " + FormatNumber(v) + " " + s.SpeedLabel()
}

// FormatSatellites renders "Satellites: {visible} ({used} used)".
// Counts are not validated.
func FormatSatellites(visible, usedInFix int) string {
	return fmt.Sprintf("Satellites: %d (%d used)", visible, usedInFix)
}

// FormatElapsed renders d as zero-padded HH:MM:SS. Hours are unbounded
// and negative durations render as zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	seconds := total % 60
	minutes := (total / 60) % 60
	hours := total / 3600
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

var labeledNumberRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// ParseLabeledNumber recovers the first number embedded in a rendered label,
// eg. 12.3 from "Max: 12.3 mph". A comma decimal separator is accepted.
// Anything that does not contain a number yields 0.
//
// This exists for reading labels produced elsewhere; trip values are always
// derived from their SI sources, never from labels.
func ParseLabeledNumber(label string) float64 {
	m := labeledNumberRe.FindString(label)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return f
}
