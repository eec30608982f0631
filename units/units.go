// Package units converts SI trip values (meters, meters/second, seconds)
// into display strings for the active unit system.
package units

import (
	"fmt"
	"strings"
)

// System is the display unit system.
// Imperial is the zero value and the default.
type System int

const (
	Imperial System = iota
	Metric
)

const (
	// MPSToKPH converts meters/second to kilometers/hour.
	MPSToKPH = 3.6
	// MPSToMPH converts meters/second to miles/hour.
	MPSToMPH = 2.23694

	MetersPerKilometer = 1000.0
	MetersPerMile      = 1609.34
)

// FromMetric maps the persisted isMetric flag to a System.
func FromMetric(isMetric bool) System {
	if isMetric {
		return Metric
	}
	return Imperial
}

// IsMetric reports whether s is Metric.
func (s System) IsMetric() bool {
	return s == Metric
}

func (s System) String() string {
	if s == Metric {
		return "metric"
	}
	return "imperial"
}

// ParseSystem reads "metric" or "imperial" (case-insensitive).
func ParseSystem(v string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "metric", "si", "km":
		return Metric, nil
	case "imperial", "us", "mi", "":
		return Imperial, nil
	}
	return Imperial, fmt.Errorf("unknown unit system %q", v)
}

// SpeedFactor multiplies meters/second into the display speed unit.
func (s System) SpeedFactor() float64 {
	if s == Metric {
		return MPSToKPH
	}
	return MPSToMPH
}

// DistanceDivisor divides meters into the display distance unit.
func (s System) DistanceDivisor() float64 {
	if s == Metric {
		return MetersPerKilometer
	}
	return MetersPerMile
}

// SpeedLabel is the unit label shown next to speeds.
func (s System) SpeedLabel() string {
	if s == Metric {
		return "km/h"
	}
	return "mph"
}

// DistanceLabel is the unit label shown next to distances.
func (s System) DistanceLabel() string {
	if s == Metric {
		return "km"
	}
	return "mi"
}

// Speed converts meters/second into the display unit.
func (s System) Speed(metersPerSecond float64) float64 {
	return metersPerSecond * s.SpeedFactor()
}

// Distance converts meters into the display unit.
func (s System) Distance(meters float64) float64 {
	return meters / s.DistanceDivisor()
}
