package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotblauer/tripd/types/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripLog_AppendRead(t *testing.T) {
	s, clock := newReplaySession(t)
	filed := make(chan TripSummary, 2)
	sub := s.SubscribeFiled(filed)
	defer sub.Unsubscribe()

	replay(t, s, clock,
		location(0, 10, 51.5074, -0.1278),
		location(time.Hour, 20, 48.8566, 2.3522),
		sample.Sample{Kind: sample.KindReset, Time: t0.Add(time.Hour)},
		location(2*time.Hour, 5, 48.8566, 2.3522),
		sample.Sample{Kind: sample.KindReset, Time: t0.Add(3 * time.Hour)},
	)
	first, second := <-filed, <-filed

	log := NewTripLog(t.TempDir())
	got, err := log.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(second))

	got, err = log.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
	assert.Equal(t, time.Hour, got[0].Elapsed)

	// A new session picks up where the last one stopped.
	next, _ := newReplaySession(t)
	next.Remember(got...)
	recent := next.RecentTrips()
	require.Len(t, recent, 2)
	assert.Equal(t, second.TripID, recent[0].TripID)
	_, ok := next.Trip(first.TripID)
	assert.True(t, ok)
}

func TestTripLog_Record(t *testing.T) {
	s, clock := newReplaySession(t)
	log := NewTripLog(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Record(ctx, s)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	// Record subscribes asynchronously; file trips until one lands.
	at := time.Duration(0)
	require.Eventually(t, func() bool {
		at += time.Minute
		replay(t, s, clock,
			location(at, 10, 51.5074, -0.1278),
			sample.Sample{Kind: sample.KindReset, Time: t0.Add(at)},
		)
		got, err := log.Read(context.Background())
		return err == nil && len(got) > 0
	}, 2*time.Second, 20*time.Millisecond)
}
