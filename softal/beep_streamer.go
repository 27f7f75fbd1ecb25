// SPDX-License-Identifier: EPL-2.0

package softal

import "github.com/gopxl/beep/v2"

// Streamer adapts a Renderer to beep. It never drains.
type Streamer struct {
	r   Renderer
	buf []float32
}

var _ beep.Streamer = (*Streamer)(nil)

func NewStreamer(r Renderer) *Streamer {
	return &Streamer{r: r}
}

func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	need := len(samples) * OutputChannels
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	buf := s.buf[:need]
	s.r.Mix(buf)
	for i := range samples {
		samples[i][0] = float64(buf[2*i])
		samples[i][1] = float64(buf[2*i+1])
	}
	return len(samples), true
}

func (s *Streamer) Err() error { return nil }
