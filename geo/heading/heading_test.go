package heading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// angularDiff is the absolute difference between two headings, accounting for wrap.
func angularDiff(a, b float64) float64 {
	d := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	return math.Min(d, 360-d)
}

func TestAngularSmoother_WrapAround(t *testing.T) {
	s := NewAngularSmoother(2)
	s.Add(350)
	s.Add(10)
	avg := s.Average()
	if angularDiff(avg, 0) > 0.5 {
		t.Errorf("Expected ~0, but got %v", avg)
	}
	if avg < 0 || avg >= 360 {
		t.Errorf("Expected average in [0, 360), but got %v", avg)
	}
}

func TestAngularSmoother_Empty(t *testing.T) {
	s := NewAngularSmoother(5)
	assert.Zero(t, s.Average())
	assert.Zero(t, s.Len())
}

func TestAngularSmoother_Window(t *testing.T) {
	s := NewAngularSmoother(3)
	for _, a := range []float64{180, 180, 180, 90, 90, 90} {
		s.Add(a)
	}
	// The 180s have all been evicted.
	assert.Equal(t, 3, s.Len())
	assert.InDelta(t, 90, s.Average(), 1e-9)

	s.Add(100)
	assert.Equal(t, 3, s.Len())
	assert.InDelta(t, 93.33, s.Average(), 0.05)
}

func TestAngularSmoother_NormalizesNegative(t *testing.T) {
	s := NewAngularSmoother(4)
	s.Add(-90)
	assert.InDelta(t, 270, s.Average(), 1e-9)
}

func TestAngularSmoother_SumsTrackWindow(t *testing.T) {
	s := NewAngularSmoother(4)
	for i := 0; i < 1000; i++ {
		s.Add(float64(i*37) + 0.5)
	}
	var sin, cos float64
	for _, rad := range s.window.Get() {
		sin += math.Sin(rad)
		cos += math.Cos(rad)
	}
	assert.InDelta(t, sin, s.sumSin, 1e-9)
	assert.InDelta(t, cos, s.sumCos, 1e-9)
}

func TestAngularSmoother_DropsNonFinite(t *testing.T) {
	s := NewAngularSmoother(4)
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if s.Add(bad) {
			t.Errorf("Expected %v to be dropped", bad)
		}
	}
	assert.Zero(t, s.Len())
	for i := 0; i < 50; i++ {
		assert.True(t, s.Add(90))
	}
	assert.InDelta(t, 90, s.Average(), 1e-9)
	assert.False(t, math.IsNaN(s.sumSin) || math.IsNaN(s.sumCos))
}

func TestAngularSmoother_Reset(t *testing.T) {
	s := NewAngularSmoother(4)
	s.Add(45)
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Average())
	s.Add(120)
	assert.InDelta(t, 120, s.Average(), 1e-9)
}

func TestMovingAverage_DropsNonFinite(t *testing.T) {
	m := NewMovingAverage(2)
	m.Add(4)
	assert.False(t, m.Add(math.NaN()))
	m.Add(6)
	m.Add(8)
	assert.InDelta(t, 7, m.Average(), 1e-12)
}

func TestMovingAverage(t *testing.T) {
	m := NewMovingAverage(3)
	assert.Zero(t, m.Average())
	m.Add(1)
	m.Add(2)
	m.Add(3)
	assert.InDelta(t, 2, m.Average(), 1e-12)
	m.Add(10)
	assert.InDelta(t, 5, m.Average(), 1e-12)
	m.Reset()
	assert.Zero(t, m.Average())
}

func TestDirection(t *testing.T) {
	cases := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{22.49, "N"},
		{22.5, "NE"},
		{67.49, "NE"},
		{67.5, "E"},
		{112.5, "SE"},
		{157.5, "S"},
		{202.5, "SW"},
		{247.5, "W"},
		{292.5, "NW"},
		{337.49, "NW"},
		{337.5, "N"},
		{359.99, "N"},
		{360, "N"},
		{-45, "NW"},
		{405, "NE"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Direction(c.deg), "Direction(%v)", c.deg)
	}
}

func TestAzimuthFromRadians(t *testing.T) {
	assert.InDelta(t, 0, AzimuthFromRadians(0), 1e-9)
	assert.InDelta(t, 270, AzimuthFromRadians(-math.Pi/2), 1e-9)
	assert.InDelta(t, 180, AzimuthFromRadians(math.Pi), 1e-9)
	assert.Zero(t, NormalizeDegrees(math.NaN()))
}
