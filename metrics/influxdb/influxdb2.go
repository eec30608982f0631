package influxdb

import (
	"context"
	"log/slog"
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/params"
)

// PointFromSnapshot converts a snapshot into a point.
// Values are SI; the display unit is kept as a tag.
func PointFromSnapshot(measurement string, snap trip.Snapshot) *write.Point {
	p := influxdb2.NewPointWithMeasurement(measurement).
		SetTime(snap.Time).
		AddTag("state", snap.State.String()).
		AddTag("unit", snap.Unit).
		AddField("speed", snap.SpeedMPS).
		AddField("max_speed", snap.MaxSpeedMPS).
		AddField("distance", snap.DistanceMeters).
		AddField("average_speed", snap.AverageSpeedMPS).
		AddField("elapsed", snap.ElapsedSeconds).
		AddField("samples", snap.Samples).
		AddField("heading", snap.Heading)

	// Idle snapshots have no trip.
	if !snap.TripID.Empty() {
		p.AddTag("trip_id", snap.TripID.String())
	}
	return p
}

// ExportSnapshots writes every snapshot received on snaps to an InfluxDB Write API
// until snaps is closed or ctx is done.
// The Write API buffers and flushes in the background.
// The last error encountered is returned.
func ExportSnapshots(ctx context.Context, config *params.InfluxConfig, snaps <-chan trip.Snapshot) error {
	if config == nil {
		config = params.DefaultInfluxConfig()
	}
	logger := slog.With("sink", "influxdb")

	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(config.Precision)
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	writeAPI := client.WriteAPI(config.Org, config.Bucket)

	// Must be called before any writes for errors to be collected.
	// The chan is unbuffered and must be drained or the writer will block.
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				logger.Warn("Write failed", "error", e)
				err = e
			}
		}
	}()

	n := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case snap, ok := <-snaps:
			if !ok {
				break loop
			}
			writeAPI.WritePoint(PointFromSnapshot(config.Measurement, snap))
			n++
		}
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	logger.Info("Exported snapshots", "count", n, "url", config.URL, "bucket", config.Bucket)
	return err
}
