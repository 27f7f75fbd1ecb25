// SPDX-License-Identifier: EPL-2.0

package softal

import (
	"sync"
	"time"
)

// Renderer is what an output pulls audio from.
type Renderer interface {
	// Mix overwrites dst with interleaved stereo float32 frames.
	Mix(dst []float32)
}

// Output is a sink that pulls from one Renderer until closed.
type Output interface {
	Attach(r Renderer) error
	Close() error
}

// OutputFunc opens an output running at sampleRate.
type OutputFunc func(sampleRate int) (Output, error)

// Null pulls audio in real time and throws it away. It keeps playback
// moving on hosts without an audio device.
type Null struct {
	period time.Duration

	stop chan struct{}
	done chan struct{}
	once *sync.Once
	rate int
}

// NewNull returns an OutputFunc for a Null output pulling every period.
func NewNull(period time.Duration) OutputFunc {
	return func(sampleRate int) (Output, error) {
		return &Null{
			period: period,
			rate:   sampleRate,
			stop:   make(chan struct{}),
			done:   make(chan struct{}),
			once:   &sync.Once{},
		}, nil
	}
}

func (n *Null) Attach(r Renderer) error {
	frames := max(1, int(time.Duration(n.rate)*n.period/time.Second))
	buf := make([]float32, frames*OutputChannels)

	go func() {
		defer close(n.done)

		ticker := time.NewTicker(n.period)
		defer ticker.Stop()
		for {
			select {
			case <-n.stop:
				return
			case <-ticker.C:
				r.Mix(buf)
			}
		}
	}()
	return nil
}

func (n *Null) Close() error {
	n.once.Do(func() {
		close(n.stop)
	})
	select {
	case <-n.done:
	case <-time.After(time.Second):
	}
	return nil
}
