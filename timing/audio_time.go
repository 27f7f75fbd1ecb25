// SPDX-License-Identifier: EPL-2.0

package timing

import (
	"fmt"
	"math"
)

// AudioTime is a point or length in an audio stream, derived from a single
// seconds value.
type AudioTime struct {
	seconds float32
}

// NewAudioTime returns the AudioTime for the given number of seconds.
func NewAudioTime(seconds float32) AudioTime {
	return AudioTime{seconds: seconds}
}

// Milliseconds returns the whole value expressed in milliseconds.
func (t AudioTime) Milliseconds() float32 { return t.seconds * 1000 }

// Seconds returns the seconds past the last full minute.
func (t AudioTime) Seconds() float32 {
	return float32(math.Mod(float64(t.seconds), 60))
}

// Minutes returns the whole value expressed in minutes.
func (t AudioTime) Minutes() float32 { return t.seconds / 60 }

// TotalSeconds returns the value in seconds as Minutes()*60. Seek clamping
// is computed against this value, not against the constructor input.
func (t AudioTime) TotalSeconds() float32 { return t.Minutes() * 60 }

func (t AudioTime) String() string {
	whole := int64(t.Milliseconds())
	return fmt.Sprintf("%02d:%02d.%03d", whole/60000, (whole/1000)%60, whole%1000)
}
