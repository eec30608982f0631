package units

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{10.0, "10"},
		{10.5, "10.5"},
		{0, "0"},
		{-10.0, "-10"},
		{-10.5, "-10.5"},
		{10.09, "10.1"},
		{10.94, "10.9"},
		{10.05, "10.1"},
		{22.3694, "22.4"},
		{36.0000000001, "36"},
		{1e-10, "0"},
		{-1e-10, "0"},
		{1e19, "10000000000000000000"},
		{-1e19, "-10000000000000000000"},
		{math.NaN(), "0"},
		{math.Inf(1), "0"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatNumber(c.in), "FormatNumber(%v)", c.in)
	}
}

func TestFormatLabels(t *testing.T) {
	assert.Equal(t, "Max: 44.7 mph", FormatMaxSpeed(44.7388, Imperial))
	assert.Equal(t, "Max: 0 km/h", FormatMaxSpeed(0, Metric))
	assert.Equal(t, "Dist: 213.7 mi", FormatDistance(213.7155, Imperial))
	assert.Equal(t, "Dist: 0 km", FormatDistance(0, Metric))
	assert.Equal(t, "Avg: 36 km/h", FormatAverageSpeed(36, Metric))
	assert.Equal(t, "Satellites: 10 (5 used)", FormatSatellites(10, 5))
	assert.Equal(t, "Satellites: -1 (7 used)", FormatSatellites(-1, 7))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(0))
	assert.Equal(t, "00:00:00", FormatElapsed(-time.Second))
	assert.Equal(t, "00:00:01", FormatElapsed(1999*time.Millisecond))
	assert.Equal(t, "01:01:01", FormatElapsed(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "123:00:05", FormatElapsed(123*time.Hour+5*time.Second))
}

func TestParseLabeledNumber(t *testing.T) {
	assert.InDelta(t, 12.3, ParseLabeledNumber("Max: 12.3 mph"), 0.001)
	assert.InDelta(t, -45.6, ParseLabeledNumber("Dist: -45,6 km"), 0.001)
	assert.InDelta(t, 7, ParseLabeledNumber("Speed: 7"), 0.001)

	assert.Zero(t, ParseLabeledNumber("Max: -- mph"))
	assert.Zero(t, ParseLabeledNumber("Dist: abc km"))
	assert.Zero(t, ParseLabeledNumber(""))
}

func TestSystemConversions(t *testing.T) {
	assert.Equal(t, "36", FormatNumber(Metric.Speed(10)))
	assert.Equal(t, "22.4", FormatNumber(Imperial.Speed(10)))
	assert.InDelta(t, 1.0, Metric.Distance(1000), 1e-12)
	assert.InDelta(t, 1.0, Imperial.Distance(1609.34), 1e-12)
	assert.Equal(t, Metric, FromMetric(true))
	assert.Equal(t, Imperial, FromMetric(false))
	assert.Equal(t, "km/h", Metric.SpeedLabel())
	assert.Equal(t, "mph", Imperial.SpeedLabel())

	s, err := ParseSystem("Metric")
	assert.NoError(t, err)
	assert.Equal(t, Metric, s)
	_, err = ParseSystem("parsecs")
	assert.Error(t, err)
}
