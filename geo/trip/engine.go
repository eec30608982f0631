package trip

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rotblauer/tripd/conceptual"
	"github.com/rotblauer/tripd/geo/heading"
	"github.com/rotblauer/tripd/params"
	"github.com/rotblauer/tripd/units"
)

// Clock returns the current time. Tests and replays inject their own.
type Clock func() time.Time

// Engine accumulates one trip from location, heading and satellite samples
// and publishes display-ready outputs as they change.
//
// Every operation holds mu while it mutates state. Before releasing mu it
// takes pubMu, so publications leave in the same order operations ran.
type Engine struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	now    Clock
	logger *slog.Logger

	unit    units.System
	state   State
	tripID  conceptual.TripID
	started time.Time
	elapsed time.Duration

	speedMPS       float64
	maxSpeedMPS    float64
	distanceMeters float64
	avgSpeedMPS    float64
	lastPos        *orb.Point
	samples        int

	satellites     string
	smoother       *heading.AngularSmoother
	showSatellites bool
	keepScreenOn   bool

	outputs  map[Key]Update
	feeds    map[Key]*feed[Update]
	allFeed  *feed[Update]
	snapFeed *feed[Snapshot]
	scope    event.SubscriptionScope
}

// NewEngine returns an Idle engine rendering in unit.
// A nil config uses params.DefaultEngineConfig, a nil clock uses time.Now.
func NewEngine(config *params.EngineConfig, unit units.System, clock Clock) *Engine {
	if config == nil {
		config = params.DefaultEngineConfig()
	}
	if clock == nil {
		clock = time.Now
	}
	window := config.HeadingWindow
	if window < 1 {
		window = heading.DefaultWindow
	}
	e := &Engine{
		now:            clock,
		logger:         slog.With("d", "trip"),
		unit:           unit,
		smoother:       heading.NewAngularSmoother(window),
		showSatellites: true,
		outputs:        make(map[Key]Update, len(Keys)),
		feeds:          make(map[Key]*feed[Update], len(Keys)),
		allFeed:        newFeed(sameKey),
		snapFeed:       newFeed(latestOnly[Snapshot]),
	}
	for _, k := range Keys {
		e.feeds[k] = newFeed(sameKey)
	}
	e.commit(e.render())
	return e
}

// OnLocationSample folds one location fix into the trip.
// Samples without a finite speed or position are ignored.
func (e *Engine) OnLocationSample(loc Location, unit units.System) {
	e.mu.Lock()
	if !loc.Valid() {
		e.mu.Unlock()
		e.logger.Debug("Ignoring location sample", "has_speed", loc.Speed != nil, "lat", loc.Lat, "lon", loc.Lon)
		return
	}

	now := e.now()
	if e.state == Idle {
		e.state = Active
		e.started = now
		e.tripID = conceptual.NewTripID()
		e.logger.Info("Trip started", "trip", e.tripID)
	}
	e.unit = unit
	e.samples++

	e.speedMPS = *loc.Speed
	if e.speedMPS > e.maxSpeedMPS {
		e.maxSpeedMPS = e.speedMPS
	}

	pt := orb.Point{loc.Lon, loc.Lat}
	if e.lastPos != nil {
		e.distanceMeters += geo.DistanceHaversine(*e.lastPos, pt)
	}
	e.lastPos = &pt

	e.elapsed = now.Sub(e.started)
	if e.elapsed > 0 {
		e.avgSpeedMPS = e.distanceMeters / e.elapsed.Seconds()
	} else {
		e.avgSpeedMPS = 0
	}
	e.publishLocked()
}

// OnSatelliteStatusChanged renders the satellite label. It does not touch the trip.
func (e *Engine) OnSatelliteStatusChanged(visible, usedInFix int) {
	e.mu.Lock()
	e.satellites = units.FormatSatellites(visible, usedInFix)
	e.publishLocked()
}

// OnSettingsChanged switches the display unit and re-renders from the SI values.
func (e *Engine) OnSettingsChanged(unit units.System) {
	e.mu.Lock()
	e.unit = unit
	e.publishLocked()
}

// SetVisibility records the display flags carried on snapshots.
func (e *Engine) SetVisibility(showSatellites, keepScreenOn bool) {
	e.mu.Lock()
	if e.showSatellites == showSatellites && e.keepScreenOn == keepScreenOn {
		e.mu.Unlock()
		return
	}
	e.showSatellites, e.keepScreenOn = showSatellites, keepScreenOn
	e.publishSnapshotLocked(nil)
}

// OnHeadingSample feeds an azimuth in degrees to the heading smoother.
// A NaN or infinite azimuth is ignored.
func (e *Engine) OnHeadingSample(azimuthDegrees float64) {
	e.mu.Lock()
	if !e.smoother.Add(azimuthDegrees) {
		e.mu.Unlock()
		e.logger.Debug("Ignoring heading sample", "azimuth", azimuthDegrees)
		return
	}
	e.publishLocked()
}

// ResetTrip zeroes every trip accumulator and returns to Idle.
// Heading and satellites are left alone. Resetting an Idle trip publishes nothing.
func (e *Engine) ResetTrip() {
	e.mu.Lock()
	if e.state == Active {
		e.logger.Info("Trip reset", "trip", e.tripID, "samples", e.samples,
			"distance", e.distanceMeters, "elapsed", e.elapsed)
	}
	e.state = Idle
	e.tripID = ""
	e.started = time.Time{}
	e.elapsed = 0
	e.speedMPS = 0
	e.maxSpeedMPS = 0
	e.distanceMeters = 0
	e.avgSpeedMPS = 0
	e.lastPos = nil
	e.samples = 0
	e.publishLocked()
}

// Tick recomputes elapsed time from the clock. It is a no-op while Idle.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.state != Active {
		e.mu.Unlock()
		return
	}
	e.elapsed = e.now().Sub(e.started)
	e.publishLocked()
}

// State returns the trip lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Unit returns the active display unit.
func (e *Engine) Unit() units.System {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unit
}

// Value returns the current rendering of one output.
func (e *Engine) Value(key Key) Update {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outputs[key]
}

// Snapshot returns every current output.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Subscribe delivers changes of one output to ch.
// Publishing never waits on ch: while ch is full, only the latest value is kept.
func (e *Engine) Subscribe(key Key, ch chan<- Update) event.Subscription {
	f, ok := e.feeds[key]
	if !ok {
		// An unknown key never publishes.
		f = newFeed(sameKey)
	}
	return e.scope.Track(f.Subscribe(ch))
}

// SubscribeAll delivers changes of every output to ch,
// keeping the latest value per output while ch is full.
func (e *Engine) SubscribeAll(ch chan<- Update) event.Subscription {
	return e.scope.Track(e.allFeed.Subscribe(ch))
}

// SubscribeSnapshots delivers a Snapshot after every operation that changed an output.
// While ch is full only the newest snapshot waits.
func (e *Engine) SubscribeSnapshots(ch chan<- Snapshot) event.Subscription {
	return e.scope.Track(e.snapFeed.Subscribe(ch))
}

// Close ends every subscription.
func (e *Engine) Close() {
	e.scope.Close()
}

// publishLocked re-renders, hands mu over to pubMu and sends what changed.
// Caller holds e.mu; it is released on return.
func (e *Engine) publishLocked() {
	changed := e.commit(e.render())
	if len(changed) == 0 {
		e.mu.Unlock()
		return
	}
	e.publishSnapshotLocked(changed)
}

func (e *Engine) publishSnapshotLocked(changed []Update) {
	snap := e.snapshot()
	e.pubMu.Lock()
	e.mu.Unlock()
	defer e.pubMu.Unlock()

	for _, u := range changed {
		e.feeds[u.Key].Send(u)
		e.allFeed.Send(u)
	}
	e.snapFeed.Send(snap)
}
