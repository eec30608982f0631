package heading

import "math"

// compassPoints are the 8 directions, each owning a 45° sector
// centred on its bearing (N covers [337.5, 360) and [0, 22.5)).
var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Direction names the compass point for a heading in degrees.
// Headings outside [0, 360) are normalised first.
func Direction(deg float64) string {
	deg = NormalizeDegrees(deg)
	i := int(math.Floor((deg+22.5)/45)) % len(compassPoints)
	return compassPoints[i]
}

// NormalizeDegrees maps any finite angle into [0, 360).
// NaN and ±Inf map to 0.
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to 360 in float64.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// AzimuthFromRadians converts an orientation-sensor azimuth (radians, -π..π)
// into a compass heading in [0, 360).
func AzimuthFromRadians(rad float64) float64 {
	return NormalizeDegrees(rad * 180 / math.Pi)
}
