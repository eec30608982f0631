package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/tripd/common"
)

// Meter counts samples read and, given an interval, logs the read rate on a ticker.
type Meter struct {
	mu       sync.Mutex
	label    time.Time // time of the last marked sample
	interval time.Duration
	started  time.Time
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once

	reg        metrics.Registry
	count      metrics.Counter
	skipped    metrics.Counter
	size       metrics.Counter
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

// NewMeter returns a running Meter. An interval of zero disables periodic logging.
func NewMeter(interval time.Duration) *Meter {
	// Meters are no-ops unless this is set.
	metrics.Enabled = true

	reg := metrics.NewRegistry()
	m := &Meter{
		reg:        reg,
		interval:   interval,
		started:    time.Now(),
		done:       make(chan struct{}),
		count:      metrics.NewCounter(),
		skipped:    metrics.NewCounter(),
		size:       metrics.NewCounter(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}
	for name, metric := range map[string]interface{}{
		"sample.count":  m.count,
		"skipped.count": m.skipped,
		"size.count":    m.size,
		"sample.meter":  m.countMeter,
		"size.meter":    m.sizeMeter,
	} {
		if err := reg.Register(name, metric); err != nil {
			panic(err)
		}
	}
	if interval > 0 {
		m.ticker = time.NewTicker(interval)
		go m.run()
	}
	return m
}

// Mark records one decoded message of size bytes.
// label is the message's sample time, if it had one.
func (m *Meter) Mark(label time.Time, size int) {
	m.mu.Lock()
	if !label.IsZero() {
		m.label = label
	}
	m.mu.Unlock()
	m.count.Inc(1)
	m.size.Inc(int64(size))
	m.countMeter.Mark(1)
	m.sizeMeter.Mark(int64(size))
}

// Skip records one message that could not be used.
func (m *Meter) Skip() {
	m.skipped.Inc(1)
}

func (m *Meter) Count() int64 {
	return m.count.Snapshot().Count()
}

func (m *Meter) Skipped() int64 {
	return m.skipped.Snapshot().Count()
}

func (m *Meter) run() {
	for {
		select {
		case <-m.ticker.C:
			m.Log()
		case <-m.done:
			return
		}
	}
}

// Log writes the current totals and rates.
func (m *Meter) Log() {
	countSnap := m.countMeter.Snapshot()
	sizeSnap := m.sizeMeter.Snapshot()
	m.mu.Lock()
	label := m.label
	m.mu.Unlock()

	slog.Info("Read samples", "n", humanize.Comma(countSnap.Count()),
		"skipped", humanize.Comma(m.Skipped()),
		"read.last", label.Format(time.DateTime),
		"sps", common.RoundTo(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(m.started).Round(time.Second))
}

func (m *Meter) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
		m.countMeter.Stop()
		m.sizeMeter.Stop()
	})
}
