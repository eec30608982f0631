package trip

import (
	"fmt"
	"math"
)

// State is the trip lifecycle state.
type State int

const (
	// Idle means no trip is in progress and all accumulators are at rest.
	Idle State = iota
	// Active means a trip started with the first accepted sample and runs until reset.
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "active":
		*s = Active
	default:
		return fmt.Errorf("unknown trip state %q", string(b))
	}
	return nil
}

// Location is one reading from the location provider.
// Speed is nil when the provider had no speed for the fix.
type Location struct {
	Speed *float64 `json:"speed,omitempty"` // meters/second
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
}

// NewLocation is a convenience for a Location with a speed reading.
func NewLocation(speedMetersPerSecond, lat, lon float64) Location {
	return Location{Speed: &speedMetersPerSecond, Lat: lat, Lon: lon}
}

// Valid reports whether the sample carries a finite speed and coordinates.
// Invalid samples are dropped by the engine without touching state.
func (l Location) Valid() bool {
	if l.Speed == nil || !finite(*l.Speed) {
		return false
	}
	return finite(l.Lat) && finite(l.Lon)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
