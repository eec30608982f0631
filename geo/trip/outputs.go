package trip

import (
	"time"

	"github.com/rotblauer/tripd/conceptual"
	"github.com/rotblauer/tripd/geo/heading"
	"github.com/rotblauer/tripd/units"
)

// Key names one independently observable output.
type Key string

const (
	KeySpeed        Key = "speed"
	KeyUnit         Key = "unit"
	KeyMaxSpeed     Key = "max_speed"
	KeyDistance     Key = "distance"
	KeyAverageSpeed Key = "average_speed"
	KeyElapsed      Key = "elapsed"
	KeySatellites   Key = "satellites"
	KeyHeading      Key = "heading"
	KeyDirection    Key = "direction"
)

// Keys lists every output, in publication order.
var Keys = []Key{
	KeySpeed,
	KeyUnit,
	KeyMaxSpeed,
	KeyDistance,
	KeyAverageSpeed,
	KeyElapsed,
	KeySatellites,
	KeyHeading,
	KeyDirection,
}

// Update is the rendered value of one output.
// Value carries the number behind Text in display units (degrees for heading),
// and is zero for purely textual outputs.
type Update struct {
	Key   Key     `json:"key"`
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// Snapshot is every output at one instant, along with the SI values they derive from.
type Snapshot struct {
	Time   time.Time         `json:"time"`
	TripID conceptual.TripID `json:"trip_id,omitempty"`
	State  State             `json:"state"`
	Unit   string            `json:"unit"`

	Speed        string  `json:"speed"`
	MaxSpeed     string  `json:"max_speed"`
	Distance     string  `json:"distance"`
	AverageSpeed string  `json:"average_speed"`
	Elapsed      string  `json:"elapsed"`
	Satellites   string  `json:"satellites"`
	Heading      float64 `json:"heading"`
	Direction    string  `json:"direction"`

	SpeedMPS        float64 `json:"speed_mps"`
	MaxSpeedMPS     float64 `json:"max_speed_mps"`
	DistanceMeters  float64 `json:"distance_m"`
	AverageSpeedMPS float64 `json:"average_speed_mps"`
	ElapsedSeconds  float64 `json:"elapsed_s"`
	Samples         int     `json:"samples"`

	ShowSatellites bool `json:"show_satellites"`
	KeepScreenOn   bool `json:"keep_screen_on"`
}

// render projects the current state into outputs. Caller holds e.mu.
func (e *Engine) render() map[Key]Update {
	u := e.unit
	speed := u.Speed(e.speedMPS)
	maxSpeed := u.Speed(e.maxSpeedMPS)
	distance := u.Distance(e.distanceMeters)
	avg := u.Speed(e.avgSpeedMPS)
	hdg := e.smoother.Average()

	return map[Key]Update{
		KeySpeed:        {Key: KeySpeed, Text: units.FormatNumber(speed), Value: speed},
		KeyUnit:         {Key: KeyUnit, Text: u.SpeedLabel()},
		KeyMaxSpeed:     {Key: KeyMaxSpeed, Text: units.FormatMaxSpeed(maxSpeed, u), Value: maxSpeed},
		KeyDistance:     {Key: KeyDistance, Text: units.FormatDistance(distance, u), Value: distance},
		KeyAverageSpeed: {Key: KeyAverageSpeed, Text: units.FormatAverageSpeed(avg, u), Value: avg},
		KeyElapsed:      {Key: KeyElapsed, Text: units.FormatElapsed(e.elapsed), Value: e.elapsed.Seconds()},
		KeySatellites:   {Key: KeySatellites, Text: e.satellites},
		KeyHeading:      {Key: KeyHeading, Text: units.FormatNumber(hdg), Value: hdg},
		KeyDirection:    {Key: KeyDirection, Text: heading.Direction(hdg)},
	}
}

// commit stores next as the current outputs and returns what changed, in Keys order.
// Caller holds e.mu.
func (e *Engine) commit(next map[Key]Update) []Update {
	var changed []Update
	for _, k := range Keys {
		n := next[k]
		if cur, ok := e.outputs[k]; ok && cur == n {
			continue
		}
		e.outputs[k] = n
		changed = append(changed, n)
	}
	return changed
}

// snapshot builds a Snapshot from state and the committed outputs. Caller holds e.mu.
func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Time:   e.now(),
		TripID: e.tripID,
		State:  e.state,
		Unit:   e.unit.String(),

		Speed:        e.outputs[KeySpeed].Text,
		MaxSpeed:     e.outputs[KeyMaxSpeed].Text,
		Distance:     e.outputs[KeyDistance].Text,
		AverageSpeed: e.outputs[KeyAverageSpeed].Text,
		Elapsed:      e.outputs[KeyElapsed].Text,
		Satellites:   e.outputs[KeySatellites].Text,
		Heading:      e.outputs[KeyHeading].Value,
		Direction:    e.outputs[KeyDirection].Text,

		SpeedMPS:        e.speedMPS,
		MaxSpeedMPS:     e.maxSpeedMPS,
		DistanceMeters:  e.distanceMeters,
		AverageSpeedMPS: e.avgSpeedMPS,
		ElapsedSeconds:  e.elapsed.Seconds(),
		Samples:         e.samples,

		ShowSatellites: e.showSatellites,
		KeepScreenOn:   e.keepScreenOn,
	}
}
