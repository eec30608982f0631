package app

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/rotblauer/tripd/common"
	"github.com/rotblauer/tripd/conceptual"
	"github.com/rotblauer/tripd/geo/trip"
)

// TripSummary describes a trip, finished or in progress.
// Speeds are meters/second, distance meters.
type TripSummary struct {
	TripID          conceptual.TripID `json:"trip_id"`
	Ended           time.Time         `json:"ended,omitempty"`
	Samples         int               `json:"samples"`
	Elapsed         time.Duration     `json:"-"`
	ElapsedSeconds  float64           `json:"elapsed_s"`
	DistanceMeters  float64           `json:"distance_m"`
	MaxSpeedMPS     float64           `json:"max_speed_mps"`
	AverageSpeedMPS float64           `json:"average_speed_mps"`
	MeanSpeedMPS    float64           `json:"mean_speed_mps"`
	MedianSpeedMPS  float64           `json:"median_speed_mps"`
	P95SpeedMPS     float64           `json:"p95_speed_mps"`
}

func statsMustFloat(fn func() (float64, error), def float64) float64 {
	out, err := fn()
	if err != nil {
		return def
	}
	return out
}

// summarize combines the engine's accumulators with the reported speeds of the trip.
func summarize(snap trip.Snapshot, speeds []float64) TripSummary {
	data := stats.Float64Data(speeds)
	p95 := func() (float64, error) { return data.Percentile(95) }
	return TripSummary{
		TripID:          snap.TripID,
		Samples:         snap.Samples,
		Elapsed:         time.Duration(snap.ElapsedSeconds * float64(time.Second)),
		ElapsedSeconds:  snap.ElapsedSeconds,
		DistanceMeters:  common.RoundTo(snap.DistanceMeters, 1),
		MaxSpeedMPS:     snap.MaxSpeedMPS,
		AverageSpeedMPS: common.RoundTo(snap.AverageSpeedMPS, 2),
		MeanSpeedMPS:    common.RoundTo(statsMustFloat(data.Mean, 0), 2),
		MedianSpeedMPS:  common.RoundTo(statsMustFloat(data.Median, 0), 2),
		P95SpeedMPS:     common.RoundTo(statsMustFloat(p95, 0), 2),
	}
}
