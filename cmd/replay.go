/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/tripd/app"
	"github.com/rotblauer/tripd/common"
	"github.com/rotblauer/tripd/geo/heading"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/metrics/influxdb"
	"github.com/rotblauer/tripd/metrics/mqtt"
	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/settings"
	"github.com/rotblauer/tripd/stream"
	"github.com/rotblauer/tripd/tripz"
	"github.com/rotblauer/tripd/types/sample"
	"github.com/rotblauer/tripd/units"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	Metric        bool
	HeadingWindow int
	SpeedWindow   int
	Dedupe        bool
	MeterInterval time.Duration

	// Sinks are enabled when non-nil.
	Influx *params.InfluxConfig
	MQTT   *params.MQTTConfig
}

type replayReport struct {
	Messages int64
	Skipped  int64
	Ignored  int
	Deduped  int

	// Trip is the trip in progress at the end of input,
	// or the last one filed by a reset.
	Trip    app.TripSummary
	HasTrip bool
}

var optReplayFile string
var optReplay = replayOptions{}
var optReplayInflux, optReplayMQTT bool

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded samples through a trip engine",
	Long: `Reads samples as JSON lines (or one JSON array) from stdin, or --file,
and prints every change of the trip readouts as a tab-separated line.

Samples are flat objects with a "type" of location, heading, satellites,
reset or settings, or GeoJSON Point features as recorded by cattracks.
Elapsed time follows the samples' own timestamps when they have them.

Examples:

  tripd replay --file trip.ndjson --metric
  tripd replay --file recorded.geojson.gz
  zcat tracks.json.gz | tripd replay --dedupe --influx
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx, cancel := common.InterruptContext(context.Background())
		defer cancel()

		var in io.Reader = os.Stdin
		if optReplayFile != "" {
			f, err := tripz.Open(optReplayFile)
			if err != nil {
				log.Fatalln(err)
			}
			defer f.Close()
			in = f
		}
		if optReplayInflux {
			optReplay.Influx = params.DefaultInfluxConfig()
		}
		if optReplayMQTT {
			optReplay.MQTT = params.DefaultMQTTConfig()
		}

		report, err := replay(ctx, in, os.Stdout, optReplay)
		if err != nil {
			slog.Error("Replay failed", "error", err)
			os.Exit(1)
		}
		logReplayReport(report)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	flags := replayCmd.Flags()
	flags.StringVarP(&optReplayFile, "file", "f", "", "Read samples from this file instead of stdin")
	flags.BoolVar(&optReplay.Metric, "metric", false, "Display kilometers instead of miles")
	flags.IntVar(&optReplay.HeadingWindow, "heading-window", params.DefaultEngineConfig().HeadingWindow, "Heading samples averaged for the compass")
	flags.IntVar(&optReplay.SpeedWindow, "speed-window", 5, "Speed samples averaged for the smoothed speed column")
	flags.BoolVar(&optReplay.Dedupe, "dedupe", false, "Drop repeated timestamped samples")
	flags.DurationVar(&optReplay.MeterInterval, "log-interval", 10*time.Second, "How often to log read rate, 0 to disable")
	flags.BoolVar(&optReplayInflux, "influx", false, "Export snapshots to InfluxDB (TRIPD_INFLUXDB_* env)")
	flags.BoolVar(&optReplayMQTT, "mqtt", false, "Publish snapshots over MQTT (TRIPD_MQTT_* env)")
}

// replay feeds every sample from in through a fresh session, writing readout changes to out.
func replay(ctx context.Context, in io.Reader, out io.Writer, opts replayOptions) (*replayReport, error) {
	provider := settings.NewProvider(settings.NewMemoryStore())
	if opts.Metric {
		if err := provider.Set(ctx, settings.KeyIsMetric, true); err != nil {
			return nil, err
		}
	}

	config := params.DefaultEngineConfig()
	if opts.HeadingWindow > 0 {
		config.HeadingWindow = opts.HeadingWindow
	}
	clock := &app.SampleClock{}
	session, err := app.NewSession(config, provider, clock.Now)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var mqttPub *mqtt.Publisher
	if opts.MQTT != nil {
		mqttPub = mqtt.NewPublisher(opts.MQTT)
		if err := mqttPub.Connect(); err != nil {
			return nil, err
		}
		defer mqttPub.Close()
	}

	// Replay hands snapshots to its consumers itself, so a slow sink
	// slows the replay down rather than missing readouts.
	var consumers sync.WaitGroup
	var outs []chan trip.Snapshot
	var sinkErrs []error
	var sinkErrsMu sync.Mutex
	consume := func(size int, fn func(<-chan trip.Snapshot) error) {
		ch := make(chan trip.Snapshot, size)
		outs = append(outs, ch)
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			if err := fn(ch); err != nil {
				sinkErrsMu.Lock()
				sinkErrs = append(sinkErrs, err)
				sinkErrsMu.Unlock()
			}
			for range ch {
			}
		}()
	}
	stopConsumers := sync.OnceFunc(func() {
		for _, ch := range outs {
			close(ch)
		}
		consumers.Wait()
	})
	defer stopConsumers()

	consume(64, func(snaps <-chan trip.Snapshot) error {
		return printSnapshots(out, snaps, opts.SpeedWindow)
	})
	if opts.Influx != nil {
		consume(256, func(snaps <-chan trip.Snapshot) error {
			return influxdb.ExportSnapshots(ctx, opts.Influx, snaps)
		})
	}
	if mqttPub != nil {
		consume(256, func(snaps <-chan trip.Snapshot) error {
			return mqttPub.ExportSnapshots(ctx, snaps)
		})
	}

	var last trip.Snapshot
	emit := func() {
		snap := session.Engine.Snapshot()
		if sameReadout(snap, last) {
			return
		}
		last = snap
		for _, ch := range outs {
			select {
			case ch <- snap:
			case <-ctx.Done():
				return
			}
		}
	}

	report := &replayReport{}
	meter := stream.NewMeter(opts.MeterInterval)
	defer meter.Stop()
	samples, errs := stream.Samples(ctx, in, meter, func(msg json.RawMessage, err error) {
		slog.Debug("Skipping message", "msg", string(msg), "error", err)
	})
	if opts.Dedupe {
		seen := sample.NewDedupeLRUFunc(sample.DefaultDedupeSize)
		samples = stream.Filter(ctx, func(s sample.Sample) bool {
			// Untimed samples can legitimately repeat.
			if !s.HasTime() || seen(s) {
				return true
			}
			report.Deduped++
			return false
		}, samples)
	}

	for smp := range samples {
		clock.Observe(smp.Time)
		if smp.Kind == sample.KindLocation && !smp.Location.Valid() {
			report.Ignored++
		}
		if err := session.Apply(ctx, smp); err != nil {
			slog.Warn("Failed to apply sample", "kind", smp.Kind, "error", err)
		}
		emit()
		if smp.HasTime() {
			session.Engine.Tick()
			emit()
		}
	}
	readErr := <-errs
	stopConsumers()

	report.Messages = meter.Count()
	report.Skipped = meter.Skipped()
	if cur, ok := session.Current(); ok {
		report.Trip, report.HasTrip = cur, true
	} else if recent := session.RecentTrips(); len(recent) > 0 {
		report.Trip, report.HasTrip = recent[0], true
	}

	if readErr != nil {
		return report, readErr
	}
	if len(sinkErrs) > 0 {
		return report, fmt.Errorf("sink: %w", sinkErrs[len(sinkErrs)-1])
	}
	return report, nil
}

// sameReadout reports whether two snapshots differ only in their timestamp.
func sameReadout(a, b trip.Snapshot) bool {
	a.Time, b.Time = time.Time{}, time.Time{}
	return a == b
}

// printSnapshots writes one line per snapshot, plus a moving average of the reported speed.
func printSnapshots(out io.Writer, snaps <-chan trip.Snapshot, speedWindow int) error {
	smoothed := heading.NewMovingAverage(speedWindow)
	var err error
	for snap := range snaps {
		if err != nil {
			continue // drain
		}
		unit := units.Imperial
		if u, perr := units.ParseSystem(snap.Unit); perr == nil {
			unit = u
		}
		smoothed.Add(snap.SpeedMPS)
		_, err = fmt.Fprintf(out, "%s\t%s\t%s\t%.1f\t%s\t%s\t%s\t%s\t%s\t%.0f %s\n",
			snap.Time.Format(time.RFC3339),
			snap.State,
			snap.Speed,
			unit.Speed(smoothed.Average()),
			snap.MaxSpeed,
			snap.Distance,
			snap.AverageSpeed,
			snap.Elapsed,
			snap.Satellites,
			snap.Heading,
			snap.Direction,
		)
	}
	return err
}

func logReplayReport(r *replayReport) {
	slog.Info("Replay done",
		"messages", humanize.Comma(r.Messages),
		"skipped", humanize.Comma(r.Skipped),
		"ignored", r.Ignored,
		"deduped", r.Deduped)
	if !r.HasTrip {
		slog.Info("No trip")
		return
	}
	t := r.Trip
	slog.Info("Trip",
		"id", t.TripID,
		"samples", t.Samples,
		"elapsed", t.Elapsed.Round(time.Second),
		"distance", humanize.SIWithDigits(t.DistanceMeters, 1, "m"),
		"max.mps", t.MaxSpeedMPS,
		"avg.mps", t.AverageSpeedMPS,
		"median.mps", t.MedianSpeedMPS,
		"p95.mps", t.P95SpeedMPS)
}
