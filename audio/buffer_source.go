// SPDX-License-Identifier: EPL-2.0

package audio

import "io"

// BufferSource is a Source over interleaved float32 samples held in memory.
type BufferSource struct {
	sampleRate int
	channels   int
	data       []float32
	pos        int
}

// NewBufferSource wraps data, which must be interleaved with the given
// channel count. A trailing partial frame is dropped.
func NewBufferSource(sampleRate, channels int, data []float32) *BufferSource {
	usable := len(data) - len(data)%channels
	return &BufferSource{
		sampleRate: sampleRate,
		channels:   channels,
		data:       data[:usable],
	}
}

func (b *BufferSource) SampleRate() int { return b.sampleRate }
func (b *BufferSource) Channels() int   { return b.channels }
func (b *BufferSource) BufSize() int    { return 4096 }
func (b *BufferSource) Close() error    { return nil }

// Frames returns the number of frames held.
func (b *BufferSource) Frames() int { return len(b.data) / b.channels }

func (b *BufferSource) ReadSamples(dst []float32) (int, error) {
	if len(dst)%b.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}

	n := copy(dst, b.data[b.pos:])
	b.pos += n
	if b.pos >= len(b.data) {
		return n, io.EOF
	}
	return n, nil
}
