// SPDX-License-Identifier: EPL-2.0

package timing

import (
	"math"
	"testing"
)

func TestAudioTime_Components(t *testing.T) {
	t.Parallel()

	at := NewAudioTime(125.25)

	if got := at.Milliseconds(); got != 125250 {
		t.Errorf("Milliseconds() = %v, want 125250", got)
	}
	if got := at.Seconds(); math.Abs(float64(got)-5.25) > 1e-5 {
		t.Errorf("Seconds() = %v, want 5.25", got)
	}
	if got := at.Minutes(); math.Abs(float64(got)-125.25/60) > 1e-5 {
		t.Errorf("Minutes() = %v, want %v", got, 125.25/60)
	}
}

func TestAudioTime_TotalSecondsDerivesFromMinutes(t *testing.T) {
	t.Parallel()

	for _, s := range []float32{0, 1, 59.999, 100, 185.5, 3601.1} {
		at := NewAudioTime(s)
		want := (s / 60) * 60
		if got := at.TotalSeconds(); got != want {
			t.Errorf("NewAudioTime(%v).TotalSeconds() = %v, want %v", s, got, want)
		}
		if math.Abs(float64(at.TotalSeconds()-s)) > 1e-3 {
			t.Errorf("NewAudioTime(%v).TotalSeconds() drifted to %v", s, at.TotalSeconds())
		}
	}
}

func TestAudioTime_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want string
	}{
		{0, "00:00.000"},
		{185.5, "03:05.500"},
		{59.25, "00:59.250"},
	}

	for _, tt := range tests {
		if got := NewAudioTime(tt.in).String(); got != tt.want {
			t.Errorf("NewAudioTime(%v).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
