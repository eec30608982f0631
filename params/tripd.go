package params

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/mitchellh/go-homedir"
)

func init() {
	metrics.Enabled = true
}

// DatadirRoot is where tripd keeps its state (settings DB).
var DatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		slog.Warn("No home directory, using working directory", "error", err)
		return ".tripd"
	}
	return filepath.Join(home, ".tripd")
}()

const (
	SettingsDBName = "settings.db"
	ConfigFileName = "tripd"
	EnvPrefix      = "TRIPD"
)

var SettingsBucket = []byte("settings")

var (
	// RecentTripsSize is how many reset trips a session remembers.
	RecentTripsSize = 32

	// CacheLastSnapshotTTL bounds how stale a snapshot may be
	// and still be replayed to a newly connected websocket.
	CacheLastSnapshotTTL = 10 * time.Minute
)

// EngineConfig tunes the trip engine.
type EngineConfig struct {
	// HeadingWindow is the number of azimuth samples averaged for the compass.
	HeadingWindow int

	// TickInterval is how often elapsed time is recomputed while a trip is active.
	TickInterval time.Duration
}

func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		HeadingWindow: 10,
		TickInterval:  time.Second,
	}
}

// SettingsConfig locates the persisted settings store.
type SettingsConfig struct {
	DataDir string
}

func DefaultSettingsConfig() *SettingsConfig {
	return &SettingsConfig{DataDir: DatadirRoot}
}

func (c *SettingsConfig) DBPath() string {
	return filepath.Join(c.DataDir, SettingsDBName)
}
