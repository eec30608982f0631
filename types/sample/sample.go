// Package sample decodes recorded sensor input into engine operations.
package sample

import (
	"time"

	"github.com/rotblauer/tripd/geo/trip"
)

// Kind names the engine operation a Sample drives.
type Kind string

const (
	KindLocation   Kind = "location"
	KindHeading    Kind = "heading"
	KindSatellites Kind = "satellites"
	KindReset      Kind = "reset"
	KindSettings   Kind = "settings"
)

// Sample is one decoded input. Only the fields belonging to Kind are meaningful.
type Sample struct {
	Kind Kind `json:"type"`

	// Time is when the sample was taken, zero if the source had none.
	Time time.Time `json:"time,omitempty" hash:"string"`

	Location trip.Location `json:"location,omitempty"`

	// Azimuth is in degrees.
	Azimuth float64 `json:"azimuth,omitempty"`

	Visible int `json:"visible,omitempty"`
	Used    int `json:"used,omitempty"`

	Key   string `json:"key,omitempty"`
	Value bool   `json:"value,omitempty"`
}

func (s Sample) HasTime() bool {
	return !s.Time.IsZero()
}
