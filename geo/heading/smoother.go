/*
Package heading smooths compass azimuths and names them.

Angles wrap at 360°, so an arithmetic mean of 350° and 10° would land on 180°.
AngularSmoother averages the unit vectors of the samples instead.
*/
package heading

import (
	"math"

	"github.com/rotblauer/tripd/common"
)

// DefaultWindow is the number of samples averaged when no window is given.
const DefaultWindow = 10

// AngularSmoother is a fixed-window circular moving average of angles in degrees.
// It is not safe for concurrent use; the owner serialises access.
type AngularSmoother struct {
	window         *common.RingBuffer[float64] // radians
	sumSin, sumCos float64
}

// NewAngularSmoother returns a smoother over the last n samples.
// n < 1 falls back to DefaultWindow.
func NewAngularSmoother(n int) *AngularSmoother {
	if n < 1 {
		n = DefaultWindow
	}
	return &AngularSmoother{window: common.NewRingBuffer[float64](n)}
}

// Add pushes an angle (degrees) into the window, evicting the oldest sample
// and its sin/cos contribution once the window is full.
// NaN and infinite angles are dropped; Add reports whether the angle was kept.
func (a *AngularSmoother) Add(angleDegrees float64) bool {
	if math.IsNaN(angleDegrees) || math.IsInf(angleDegrees, 0) {
		return false
	}
	rad := angleDegrees * math.Pi / 180
	a.sumSin += math.Sin(rad)
	a.sumCos += math.Cos(rad)
	if old, evicted := a.window.Add(rad); evicted {
		a.sumSin -= math.Sin(old)
		a.sumCos -= math.Cos(old)
	}
	return true
}

// Average returns the circular mean of the window in [0, 360).
// An empty window averages to 0.
func (a *AngularSmoother) Average() float64 {
	n := float64(a.window.Len())
	if n == 0 {
		return 0
	}
	mean := math.Atan2(a.sumSin/n, a.sumCos/n) * 180 / math.Pi
	return NormalizeDegrees(mean)
}

// Len is the number of samples currently in the window.
func (a *AngularSmoother) Len() int {
	return a.window.Len()
}

// Reset empties the window.
func (a *AngularSmoother) Reset() {
	a.window.Reset()
	a.sumSin, a.sumCos = 0, 0
}

// MovingAverage is the linear counterpart of AngularSmoother,
// for quantities that do not wrap (speeds, accuracies).
type MovingAverage struct {
	window *common.RingBuffer[float64]
	sum    float64
}

// NewMovingAverage returns an average over the last n values.
// n < 1 falls back to DefaultWindow.
func NewMovingAverage(n int) *MovingAverage {
	if n < 1 {
		n = DefaultWindow
	}
	return &MovingAverage{window: common.NewRingBuffer[float64](n)}
}

// Add drops NaN and infinite values, like AngularSmoother.Add.
func (m *MovingAverage) Add(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	m.sum += v
	if old, evicted := m.window.Add(v); evicted {
		m.sum -= old
	}
	return true
}

// Average is 0 for an empty window.
func (m *MovingAverage) Average() float64 {
	n := m.window.Len()
	if n == 0 {
		return 0
	}
	return m.sum / float64(n)
}

func (m *MovingAverage) Reset() {
	m.window.Reset()
	m.sum = 0
}
