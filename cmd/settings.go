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
	"os"
	"strconv"

	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/settings"
	"github.com/spf13/cobra"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persisted display settings",
	Long: `Settings live in the data dir's bbolt database.
A running 'tripd serve' holds the database open; stop it first.

Keys: isMetric, keepScreenOn, showSatellites.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or all of them as JSON",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		withSettings(func(p settings.Provider) error {
			return printSettings(context.Background(), os.Stdout, p, args)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <true|false>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		withSettings(func(p settings.Provider) error {
			v, err := strconv.ParseBool(args[1])
			if err != nil {
				return err
			}
			return p.Set(context.Background(), args[0], v)
		})
	},
}

func withSettings(fn func(settings.Provider) error) {
	store, err := settings.OpenBoltStore(&params.SettingsConfig{DataDir: datadir()})
	if err != nil {
		log.Fatalln(err)
	}
	defer store.Close()
	if err := fn(settings.NewProvider(store)); err != nil {
		log.Fatalln(err)
	}
}

func printSettings(ctx context.Context, w io.Writer, p settings.Provider, args []string) error {
	st := p.Settings(ctx)
	if len(args) == 1 {
		v, err := st.Get(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, v)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
}
