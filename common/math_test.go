package common

import (
	"math"
	"testing"
)

func TestRoundTo(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{343940.9219, 1, 343940.9},
		{1.005, 2, 1.01},
		{-2.5, 0, -3},
		{95.7456, 2, 95.75},
		{0, 2, 0},
	}
	for _, c := range cases {
		if got := RoundTo(c.in, c.places); got != c.want {
			t.Errorf("Expected RoundTo(%v, %d) = %v, but got %v", c.in, c.places, c.want, got)
		}
	}
	if got := RoundTo(math.Inf(1), 2); !math.IsInf(got, 1) {
		t.Errorf("Expected +Inf, but got %v", got)
	}
	if got := RoundTo(math.NaN(), 2); !math.IsNaN(got) {
		t.Errorf("Expected NaN, but got %v", got)
	}
}
