// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream/utils"
)

// Resampler streams from src at a different sample rate using cubic
// interpolation over a four frame window. It keeps the channel count and
// applies a one-pole low-pass filter when downsampling.
type Resampler struct {
	src      Source
	dstRate  float64
	ratio    float64 // source frames consumed per output frame
	channels int

	// window[1] and window[2] bracket the output position; window[0] and
	// window[3] are the outer taps.
	window [4][]float32
	filled [4]bool
	pos    float64

	srcBuf []float32
	eof    bool

	lowPass     bool
	alpha       float32
	filterState []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:         src,
		dstRate:     float64(dstRate),
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		lowPass:     ratio > 1.0,
		alpha:       0.5,
		filterState: make([]float32, channels),
	}
	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}
	return r
}

func (r *Resampler) SampleRate() int { return int(r.dstRate) }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame pulls one frame into dst. ok is false when the source had no
// frame to give.
func (r *Resampler) readFrame(dst []float32) (ok bool, err error) {
	n, err := r.src.ReadSamples(r.srcBuf)
	if n > 0 {
		copy(dst, r.srcBuf[:n])
		if r.lowPass {
			for c := range r.channels {
				dst[c] = r.alpha*dst[c] + (1-r.alpha)*r.filterState[c]
				r.filterState[c] = dst[c]
			}
		}
		ok = true
	}
	if errors.Is(err, io.EOF) {
		r.eof = true
		return ok, nil
	}
	if err != nil {
		return ok, fmt.Errorf("%w", err)
	}
	return ok, nil
}

// prime fills the whole window, duplicating the last frame when the source
// is shorter than four frames.
func (r *Resampler) prime() error {
	for i := range r.window {
		if r.eof {
			if i == 0 {
				return io.EOF
			}
			copy(r.window[i], r.window[i-1])
			r.filled[i] = true
			continue
		}
		if i == 0 && r.lowPass {
			n, err := r.src.ReadSamples(r.srcBuf)
			if n > 0 {
				copy(r.filterState, r.srcBuf[:n])
				copy(r.window[0], r.srcBuf[:n])
				r.filled[0] = true
			}
			if errors.Is(err, io.EOF) {
				r.eof = true
			} else if err != nil {
				return fmt.Errorf("%w", err)
			}
			if n == 0 {
				return io.EOF
			}
			continue
		}
		ok, err := r.readFrame(r.window[i])
		if err != nil {
			return err
		}
		if !ok {
			if i == 0 {
				return io.EOF
			}
			copy(r.window[i], r.window[i-1])
		}
		r.filled[i] = true
	}
	return nil
}

// advance shifts the window by one source frame.
func (r *Resampler) advance() error {
	if r.eof && !r.filled[3] {
		return io.EOF
	}

	first := r.window[0]
	copy(r.window[:], r.window[1:])
	r.window[3] = first
	copy(r.filled[:], r.filled[1:])
	r.filled[3] = false

	if r.eof {
		return nil
	}
	ok, err := r.readFrame(r.window[3])
	if err != nil {
		return err
	}
	r.filled[3] = ok
	return nil
}

// ReadSamples produces dst samples at the target rate. len(dst) must be a
// multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.filled[1] {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	frames := len(dst) / r.channels
	for written < frames {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.advance(); err != nil {
				if errors.Is(err, io.EOF) {
					if written == 0 {
						return 0, io.EOF
					}
					return written * r.channels, io.EOF
				}
				return written * r.channels, err
			}
		}

		if !r.filled[1] || !r.filled[2] {
			if written == 0 {
				return 0, io.EOF
			}
			return written * r.channels, io.EOF
		}

		x := float32(r.pos)
		for c := range r.channels {
			y0 := r.window[1][c]
			if r.filled[0] {
				y0 = r.window[0][c]
			}
			y3 := r.window[2][c]
			if r.filled[3] {
				y3 = r.window[3][c]
			}
			dst[written*r.channels+c] = utils.CubicInterpolate(y0, r.window[1][c], r.window[2][c], y3, x)
		}

		written++
		r.pos += r.ratio
	}

	return written * r.channels, nil
}
