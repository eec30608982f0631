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
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotblauer/tripd/params"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var optVerbosity int
var optDatadir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tripd",
	Short: "Trip speedometer: speed, distance, elapsed time and heading",
	Long: `tripd turns a stream of location, heading and satellite samples into
trip readouts: current and max speed, distance, average speed, elapsed time,
satellites and a smoothed compass heading.

Replay a recorded trip:

  tripd replay --file trip.ndjson

Serve a live session over HTTP and websocket:

  tripd serve --address localhost:3000
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tripd/tripd.yaml)")
	pFlags.IntVarP(&optVerbosity, "verbosity", "v", 1, "0: warn, 1: info, 2: debug")
	pFlags.StringVar(&optDatadir, "datadir", params.DatadirRoot, "Directory for persisted state")

	_ = viper.BindPFlag("verbosity", pFlags.Lookup("verbosity"))
	_ = viper.BindPFlag("datadir", pFlags.Lookup("datadir"))
}

// initConfig reads in a .env, the config file and TRIPD_* variables, if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(params.DatadirRoot)
		viper.AddConfigPath(".")
		viper.SetConfigName(params.ConfigFileName)
	}
	viper.SetEnvPrefix(params.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			slog.Warn("Failed to read config", "error", err)
		}
		return
	}
	slog.Info("Using config", "file", viper.ConfigFileUsed())
}

// setDefaultSlog installs a text handler on stderr at the requested verbosity,
// leaving stdout for command output.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	switch v := viper.GetInt("verbosity"); {
	case v <= 0:
		level = slog.LevelWarn
	case v >= 2:
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	slog.Debug("Logger ready", "cmd", cmd.Name(), "args", args, "level", level)
}

// datadir is the --datadir flag, or its config/env override.
func datadir() string {
	if d := viper.GetString("datadir"); d != "" {
		return d
	}
	return params.DatadirRoot
}
