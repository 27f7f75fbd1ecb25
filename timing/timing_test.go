// SPDX-License-Identifier: EPL-2.0

package timing

import (
	"math"
	"testing"
)

func TestMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                                   string
		value, fromStart, fromStop, toStart, to float64
		want                                   float64
	}{
		{"start of range", 0, 0, 10, 0, 100, 0},
		{"end of range", 10, 0, 10, 0, 100, 100},
		{"midpoint", 5, 0, 10, 0, 100, 50},
		{"inverted target", 1.5, 1, 2, 100, 0, 50},
		{"extrapolates above", 3, 1, 2, 100, 0, -100},
		{"offset source", 15, 10, 20, 0, 1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Map(tt.value, tt.fromStart, tt.fromStop, tt.toStart, tt.to)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Map() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToSamples_Truncates(t *testing.T) {
	t.Parallel()

	// 10 seconds, 441000 samples: 1.23456s -> 54444.096 -> 54444
	got := ToSamples(1.23456, 10, 441000)
	if got != 54444 {
		t.Errorf("ToSamples() = %d, want 54444", got)
	}
}

func TestToSeconds_KeepsFraction(t *testing.T) {
	t.Parallel()

	got := ToSeconds(22050, 10, 441000)
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("ToSeconds() = %v, want 0.5", got)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	const (
		totalSeconds = 100.0
		totalSamples = int64(4_410_000)
	)
	// One sample is the largest possible truncation loss.
	tolerance := totalSeconds / float64(totalSamples)

	for i := range 1001 {
		pos := totalSeconds * float64(i) / 1000
		back := ToSeconds(ToSamples(pos, totalSeconds, totalSamples), totalSeconds, totalSamples)
		if math.Abs(back-pos) > tolerance {
			t.Fatalf("round trip of %v returned %v (tolerance %v)", pos, back, tolerance)
		}
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, total, want float64
	}{
		{-1, 100, 0},
		{0, 100, 0},
		{42.5, 100, 42.5},
		{100, 100, 100},
		{250, 100, 100},
	}

	for _, tt := range tests {
		if got := Clamp(tt.in, tt.total); got != tt.want {
			t.Errorf("Clamp(%v, %v) = %v, want %v", tt.in, tt.total, got, tt.want)
		}
	}
}
