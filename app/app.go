// Package app runs a trip engine against live inputs and the user's settings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotblauer/tripd/conceptual"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/settings"
	"github.com/rotblauer/tripd/types/sample"
	"github.com/rotblauer/tripd/units"
)

var ErrSessionClosed = errors.New("session closed")

// Session owns one Engine. Inputs submitted while Run is active are applied
// in order by a single goroutine, interleaved with clock ticks and settings changes.
type Session struct {
	Engine   *trip.Engine
	Settings settings.Provider

	config *params.EngineConfig
	logger *slog.Logger
	inputs chan sample.Sample
	done   chan struct{}

	mu     sync.Mutex
	unit   units.System
	speeds []float64
	trips  *lru.Cache[conceptual.TripID, TripSummary]

	filedFeed event.FeedOf[TripSummary]
}

// NewSession wires an engine to provider. A nil clock uses time.Now.
func NewSession(config *params.EngineConfig, provider settings.Provider, clock trip.Clock) (*Session, error) {
	if config == nil {
		config = params.DefaultEngineConfig()
	}
	if provider == nil {
		provider = settings.NewProvider(settings.NewMemoryStore())
	}
	trips, err := lru.New[conceptual.TripID, TripSummary](params.RecentTripsSize)
	if err != nil {
		return nil, err
	}
	st := provider.Settings(context.Background())
	s := &Session{
		Engine:   trip.NewEngine(config, st.Unit(), clock),
		Settings: provider,
		config:   config,
		logger:   slog.With("d", "session"),
		inputs:   make(chan sample.Sample),
		done:     make(chan struct{}),
		unit:     st.Unit(),
		trips:    trips,
	}
	s.applySettings(st)
	return s, nil
}

// Submit hands smp to the Run loop.
func (s *Session) Submit(ctx context.Context, smp sample.Sample) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	case s.inputs <- smp:
		return nil
	}
}

// Run applies submitted samples, settings changes and ticks until ctx is done.
// It returns ctx.Err(), or the settings subscription's error.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	changes := make(chan settings.Settings)
	sub := s.Settings.Subscribe(changes)
	defer sub.Unsubscribe()

	// The forwarder always drains, so a Set made from this loop cannot block on itself.
	notify := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-changes:
				select {
				case notify <- struct{}{}:
				default:
				}
			case <-sub.Err():
				return
			}
		}
	}()

	s.applySettings(s.Settings.Settings(ctx))

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case smp := <-s.inputs:
			if err := s.Apply(ctx, smp); err != nil {
				s.logger.Warn("Failed to apply sample", "kind", smp.Kind, "error", err)
			}
		case <-notify:
			s.applySettings(s.Settings.Settings(ctx))
		case <-ticker.C:
			s.Engine.Tick()
		}
	}
}

// Apply drives the engine with one sample.
// Outside of Run it must be called from a single goroutine.
func (s *Session) Apply(ctx context.Context, smp sample.Sample) error {
	switch smp.Kind {
	case sample.KindLocation:
		s.mu.Lock()
		unit := s.unit
		if smp.Location.Valid() {
			s.speeds = append(s.speeds, *smp.Location.Speed)
		}
		s.mu.Unlock()
		s.Engine.OnLocationSample(smp.Location, unit)
	case sample.KindHeading:
		s.Engine.OnHeadingSample(smp.Azimuth)
	case sample.KindSatellites:
		s.Engine.OnSatelliteStatusChanged(smp.Visible, smp.Used)
	case sample.KindReset:
		s.Reset()
	case sample.KindSettings:
		if err := s.Settings.Set(ctx, smp.Key, smp.Value); err != nil {
			return err
		}
		s.applySettings(s.Settings.Settings(ctx))
	default:
		return fmt.Errorf("%w: kind %q", sample.ErrUnknownSample, smp.Kind)
	}
	return nil
}

// Reset files the current trip, if any, under RecentTrips and resets the engine.
func (s *Session) Reset() {
	snap := s.Engine.Snapshot()
	s.mu.Lock()
	speeds := s.speeds
	s.speeds = nil
	s.mu.Unlock()

	if snap.State == trip.Active {
		sum := summarize(snap, speeds)
		sum.Ended = snap.Time
		s.trips.Add(sum.TripID, sum)
		s.logger.Info("Filed trip", "trip", sum.TripID, "distance", sum.DistanceMeters, "elapsed", sum.Elapsed)
		s.filedFeed.Send(sum)
	}
	s.Engine.ResetTrip()
}

// SubscribeFiled delivers the summary of every trip filed by Reset.
// Delivery is synchronous with Reset, so ch should be buffered and drained.
func (s *Session) SubscribeFiled(ch chan<- TripSummary) event.Subscription {
	return s.filedFeed.Subscribe(ch)
}

// Remember files summaries from an earlier run, oldest first, under RecentTrips.
func (s *Session) Remember(sums ...TripSummary) {
	for _, sum := range sums {
		if sum.TripID.Empty() {
			continue
		}
		s.trips.Add(sum.TripID, sum)
	}
}

// Current summarizes the trip in progress. ok is false while Idle.
func (s *Session) Current() (sum TripSummary, ok bool) {
	snap := s.Engine.Snapshot()
	if snap.State != trip.Active {
		return sum, false
	}
	s.mu.Lock()
	speeds := append([]float64(nil), s.speeds...)
	s.mu.Unlock()
	return summarize(snap, speeds), true
}

// RecentTrips returns the summaries of recently reset trips, newest first.
func (s *Session) RecentTrips() []TripSummary {
	keys := s.trips.Keys()
	out := make([]TripSummary, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := s.trips.Peek(keys[i]); ok {
			out = append(out, v)
		}
	}
	return out
}

// Trip looks up a recent trip by ID.
func (s *Session) Trip(id conceptual.TripID) (TripSummary, bool) {
	return s.trips.Get(id)
}

func (s *Session) applySettings(st settings.Settings) {
	s.mu.Lock()
	s.unit = st.Unit()
	s.mu.Unlock()
	s.Engine.OnSettingsChanged(st.Unit())
	s.Engine.SetVisibility(st.ShowSatellites, st.KeepScreenOn)
}

// Close ends every engine subscription.
func (s *Session) Close() {
	s.Engine.Close()
}
