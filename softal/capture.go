// SPDX-License-Identifier: EPL-2.0

package softal

import (
	"errors"
	"sync"

	"github.com/ik5/audstream/audio"
)

var ErrNotAttached = errors.New("capture output not attached")

// Capture renders on demand instead of in real time. Every Pull advances
// the mixer and keeps the frames, so a whole playback can be recorded as
// fast as the engine refills.
type Capture struct {
	mtx *sync.Mutex

	rate     int
	renderer Renderer
	frames   []float32
}

// NewCapture returns an OutputFunc that hands every opened Capture to
// opened, when not nil.
func NewCapture(opened func(*Capture)) OutputFunc {
	return func(sampleRate int) (Output, error) {
		c := &Capture{mtx: &sync.Mutex{}, rate: sampleRate}
		if opened != nil {
			opened(c)
		}
		return c, nil
	}
}

func (c *Capture) Attach(r Renderer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.renderer = r
	return nil
}

func (c *Capture) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.renderer = nil
	return nil
}

// Pull mixes frames stereo frames and appends them to the recording.
func (c *Capture) Pull(frames int) ([]float32, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.renderer == nil {
		return nil, ErrNotAttached
	}
	buf := make([]float32, frames*OutputChannels)
	c.renderer.Mix(buf)
	c.frames = append(c.frames, buf...)
	return buf, nil
}

// Recording returns everything pulled so far as a pull pipeline source.
func (c *Capture) Recording() *audio.BufferSource {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return audio.NewBufferSource(c.rate, OutputChannels, append([]float32(nil), c.frames...))
}
