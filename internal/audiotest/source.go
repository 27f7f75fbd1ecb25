// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"math"

	"github.com/ik5/audstream/audio"
)

var _ audio.Source = (*WaveSource)(nil)

// Wave returns the value of one channel at frame i.
type Wave func(i, channel int) float32

// WaveSource is a finite audio.Source computing its frames from a Wave.
type WaveSource struct {
	rate     int
	channels int
	frames   int
	wave     Wave

	pos int
}

// NewWaveSource returns frames frames of wave at rate.
func NewWaveSource(rate, channels, frames int, wave Wave) *WaveSource {
	return &WaveSource{rate: rate, channels: channels, frames: frames, wave: wave}
}

func NewSilentSource(rate, channels, frames int) *WaveSource {
	return NewConstantSource(rate, channels, frames, 0)
}

func NewConstantSource(rate, channels, frames int, v float32) *WaveSource {
	return NewWaveSource(rate, channels, frames, func(int, int) float32 { return v })
}

// NewSineSource is a full scale sine at hz, the same on every channel.
func NewSineSource(rate, channels, frames int, hz float64) *WaveSource {
	step := 2 * math.Pi * hz / float64(rate)
	return NewWaveSource(rate, channels, frames, func(i, _ int) float32 {
		return float32(math.Sin(step * float64(i)))
	})
}

func (w *WaveSource) SampleRate() int { return w.rate }
func (w *WaveSource) Channels() int   { return w.channels }
func (w *WaveSource) BufSize() int    { return 4096 }
func (w *WaveSource) Close() error    { return nil }

// Remaining is the number of frames not read yet.
func (w *WaveSource) Remaining() int { return w.frames - w.pos }

// ReadSamples fills whole frames of dst. The read that hands out the last
// frame also returns io.EOF.
func (w *WaveSource) ReadSamples(dst []float32) (int, error) {
	if len(dst)%w.channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	n := min(len(dst)/w.channels, w.Remaining())
	if n == 0 && w.Remaining() == 0 {
		return 0, io.EOF
	}

	for f := range n {
		for ch := range w.channels {
			dst[f*w.channels+ch] = w.wave(w.pos+f, ch)
		}
	}
	w.pos += n

	if w.Remaining() == 0 {
		return n * w.channels, io.EOF
	}
	return n * w.channels, nil
}
