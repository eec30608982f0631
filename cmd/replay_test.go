package cmd

import (
	"bytes"
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/testing/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayFixture(t *testing.T, opts replayOptions) (*replayReport, []string) {
	t.Helper()
	f, err := os.Open(testdata.Path(testdata.Trip_LondonParis))
	require.NoError(t, err)
	defer f.Close()

	out := &bytes.Buffer{}
	report, err := replay(context.Background(), f, out, opts)
	require.NoError(t, err)
	return report, strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestReplay(t *testing.T) {
	report, lines := replayFixture(t, replayOptions{Dedupe: true})

	assert.Equal(t, 1, report.Deduped)
	assert.Equal(t, 1, report.Ignored)
	assert.Equal(t, int64(1), report.Skipped)
	require.True(t, report.HasTrip)
	assert.Equal(t, 2, report.Trip.Samples)
	assert.Equal(t, time.Hour, report.Trip.Elapsed)
	assert.Equal(t, 15.0, report.Trip.MedianSpeedMPS)
	assert.InDelta(t, 343940.9, report.Trip.DistanceMeters, 0.1)

	last := strings.Split(lines[len(lines)-1], "\t")
	require.Len(t, last, 10)
	assert.Equal(t, "active", last[1])
	assert.Equal(t, "44.7", last[2])
	assert.Equal(t, "Max: 44.7 mph", last[4])
	assert.Equal(t, "Dist: 213.7 mi", last[5])
	assert.Equal(t, "Avg: 213.7 mph", last[6])
	assert.Equal(t, "01:00:00", last[7])
	assert.Equal(t, "Satellites: 9 (6 used)", last[8])
	// 350 and 10 average to north.
	assert.True(t, strings.HasSuffix(last[9], " N"), last[9])
}

func TestReplayWithoutDedupe(t *testing.T) {
	report, _ := replayFixture(t, replayOptions{})
	assert.Zero(t, report.Deduped)
	// The duplicate adds a sample, but no distance.
	assert.Equal(t, 3, report.Trip.Samples)
	assert.InDelta(t, 343940.9, report.Trip.DistanceMeters, 0.1)
}

func TestReplayMetric(t *testing.T) {
	_, lines := replayFixture(t, replayOptions{Metric: true, HeadingWindow: 1})
	last := strings.Split(lines[len(lines)-1], "\t")
	require.Len(t, last, 10)
	assert.Equal(t, "72", last[2])
	assert.Equal(t, "Dist: 343.9 km", last[5])
	// A window of one keeps only the last azimuth.
	assert.Equal(t, "10 N", last[9])
}

func TestReplaySmoothedSpeed(t *testing.T) {
	_, lines := replayFixture(t, replayOptions{Dedupe: true, SpeedWindow: 1})
	last := strings.Split(lines[len(lines)-1], "\t")
	require.Len(t, last, 10)
	assert.Equal(t, "44.7", last[3])
}

func TestReplayPrintsOnlyChanges(t *testing.T) {
	_, lines := replayFixture(t, replayOptions{Dedupe: true})
	require.Greater(t, len(lines), 1)
	for i := 1; i < len(lines); i++ {
		prev := strings.SplitN(lines[i-1], "\t", 2)[1]
		cur := strings.SplitN(lines[i], "\t", 2)[1]
		if prev == cur {
			t.Errorf("Expected line %d to change a readout, but got %q twice", i, cur)
		}
	}
}

func TestReplayMQTTUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	config := params.DefaultMQTTConfig()
	config.Broker = "127.0.0.1"
	config.Port = port
	config.ConnectTimeout = 2 * time.Second

	f, err := os.Open(testdata.Path(testdata.Trip_LondonParis))
	require.NoError(t, err)
	defer f.Close()

	done := make(chan error, 1)
	go func() {
		_, err := replay(context.Background(), f, &bytes.Buffer{}, replayOptions{MQTT: config})
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorContains(t, err, "connect to MQTT broker")
	case <-time.After(10 * time.Second):
		t.Fatal("Expected replay to give up on an unreachable broker")
	}
}
