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
	"log"
	"log/slog"
	"sync"

	"github.com/rotblauer/tripd/app"
	"github.com/rotblauer/tripd/common"
	"github.com/rotblauer/tripd/daemon/webd"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/metrics/influxdb"
	"github.com/rotblauer/tripd/metrics/mqtt"
	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optServeInflux, optServeMQTT bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a live trip session over HTTP",
	Long: `Runs one trip session. Devices POST samples to /location, /heading,
/satellites and /samples; displays read /snapshot or subscribe on /socket.

Settings persist in the data dir and are shared with 'tripd settings'.
Set TRIPD_TOKEN (or --token) to require a token for every write.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx, cancel := common.InterruptContext(context.Background())
		defer cancel()

		store, err := settings.OpenBoltStore(&params.SettingsConfig{DataDir: datadir()})
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()

		engineConfig := params.DefaultEngineConfig()
		engineConfig.HeadingWindow = viper.GetInt("heading-window")
		session, err := app.NewSession(engineConfig, settings.NewProvider(store), nil)
		if err != nil {
			log.Fatalln(err)
		}
		defer session.Close()

		tripLog := app.NewTripLog(datadir())
		previous, err := tripLog.Read(ctx)
		if err != nil {
			slog.Warn("Failed to read trip log", "path", tripLog.Path(), "error", err)
		}
		session.Remember(previous...)

		sinks := new(sync.WaitGroup)
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			tripLog.Record(ctx, session)
		}()
		if optServeInflux {
			runSink(ctx, sinks, session, func(snaps <-chan trip.Snapshot) error {
				return influxdb.ExportSnapshots(ctx, params.DefaultInfluxConfig(), snaps)
			})
		}
		if optServeMQTT {
			pub := mqtt.NewPublisher(params.DefaultMQTTConfig())
			if err := pub.Connect(); err != nil {
				log.Fatalln(err)
			}
			defer pub.Close()
			runSink(ctx, sinks, session, func(snaps <-chan trip.Snapshot) error {
				return pub.ExportSnapshots(ctx, snaps)
			})
		}

		config := params.DefaultWebDaemonConfig()
		config.Address = viper.GetString("address")
		if tok := viper.GetString("token"); tok != "" {
			config.Token = tok
		}
		if config.Token == "" {
			slog.Warn("No token set, writes are open")
		}
		server := webd.NewWebDaemon(config, session)

		sessionDone := make(chan error, 1)
		go func() {
			sessionDone <- session.Run(ctx)
		}()
		if err := server.Run(ctx); err != nil {
			slog.Error("Web daemon failed", "error", err)
			cancel()
		}
		<-sessionDone
		sinks.Wait()
		slog.Info("Serve done")
	},
}

// runSink feeds snapshots to export until ctx is done.
func runSink(ctx context.Context, wg *sync.WaitGroup, session *app.Session, export func(<-chan trip.Snapshot) error) {
	snaps := make(chan trip.Snapshot, 256)
	sub := session.Engine.SubscribeSnapshots(snaps)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sub.Unsubscribe()
		if err := export(snaps); err != nil && ctx.Err() == nil {
			slog.Error("Sink failed", "error", err)
		}
	}()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := params.DefaultWebDaemonConfig()
	flags := serveCmd.Flags()
	flags.String("address", defaults.Address, "HTTP address to listen on")
	flags.String("token", "", "Token required for writes (default $TRIPD_TOKEN)")
	flags.Int("heading-window", params.DefaultEngineConfig().HeadingWindow, "Heading samples averaged for the compass")
	flags.BoolVar(&optServeInflux, "influx", false, "Export snapshots to InfluxDB (TRIPD_INFLUXDB_* env)")
	flags.BoolVar(&optServeMQTT, "mqtt", false, "Publish snapshots over MQTT (TRIPD_MQTT_* env)")

	_ = viper.BindPFlag("address", flags.Lookup("address"))
	_ = viper.BindPFlag("token", flags.Lookup("token"))
	_ = viper.BindPFlag("heading-window", flags.Lookup("heading-window"))
}
