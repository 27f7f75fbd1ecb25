// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"sync"

	"github.com/ik5/audstream/audio"
)

// Stream is a scripted audio.SampleStream. Each ReadSamples call hands out
// the next chunk of the script; once the script runs out it returns an
// empty slice. SeekSample and Flush calls are recorded for inspection.
type Stream[T audio.Sample] struct {
	mu sync.Mutex

	rate    int
	format  audio.Format
	chunks  [][]T
	step    int64
	seconds float64

	next    int
	seeks   []int64
	flushes int
	reads   int
	closed  bool
	readErr error
}

// NewByteStream scripts a byte stream in format f. Every chunk advances
// the position by len(chunk)/channels.
func NewByteStream(f audio.Format, rate int, chunks ...[]byte) *Stream[byte] {
	s := &Stream[byte]{rate: rate, format: f, chunks: chunks}
	if len(chunks) > 0 && f.Channels() > 0 {
		s.step = int64(len(chunks[0]) / f.Channels())
	}
	if bps := f.BytesPerSample(); bps > 0 {
		s.seconds = float64(s.TotalSamples()) / float64(bps) / float64(rate)
	}
	return s
}

// NewFloatStream scripts a float stream in format f. Every chunk advances
// the position by len(chunk).
func NewFloatStream(f audio.Format, rate int, chunks ...[]float32) *Stream[float32] {
	s := &Stream[float32]{rate: rate, format: f, chunks: chunks}
	if len(chunks) > 0 {
		s.step = int64(len(chunks[0]))
	}
	if ch := f.Channels(); ch > 0 {
		s.seconds = float64(s.TotalSamples()) / float64(ch) / float64(rate)
	}
	return s
}

// Chunks builds n chunks of size values each, chunk i filled with value(i).
func Chunks[T audio.Sample](n, size int, value func(i int) T) [][]T {
	out := make([][]T, n)
	for i := range out {
		out[i] = make([]T, size)
		v := value(i)
		for j := range out[i] {
			out[i][j] = v
		}
	}
	return out
}

// FailReads makes every following ReadSamples call return err.
func (s *Stream[T]) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

func (s *Stream[T]) SampleRate() int       { return s.rate }
func (s *Stream[T]) Channels() int         { return s.format.Channels() }
func (s *Stream[T]) Format() audio.Format  { return s.format }
func (s *Stream[T]) TotalSeconds() float64 { return s.seconds }

func (s *Stream[T]) TotalSamples() int64 {
	return s.step * int64(len(s.chunks))
}

func (s *Stream[T]) ReadSamples() ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.closed {
		return nil, io.ErrClosedPipe
	}
	if s.next >= len(s.chunks) {
		return nil, nil
	}
	chunk := s.chunks[s.next]
	s.next++
	return chunk, nil
}

// SeekSample moves the script to the chunk holding sample.
func (s *Stream[T]) SeekSample(sample int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seeks = append(s.seeks, sample)
	if s.step > 0 {
		s.next = int(sample / s.step)
	}
	return nil
}

func (s *Stream[T]) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushes++
	s.next = 0
	return nil
}

func (s *Stream[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Seeks returns every position passed to SeekSample.
func (s *Stream[T]) Seeks() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seeks...)
}

func (s *Stream[T]) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Reads counts ReadSamples calls, including those past the end.
func (s *Stream[T]) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Stream[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Decoder returns a fixed stream, or Err when set. With New set every
// Decode builds a fresh stream instead.
type Decoder struct {
	Stream audio.Stream
	New    func() audio.Stream
	Err    error
}

func (d Decoder) Decode(r io.ReadSeeker) (audio.Stream, error) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if d.New != nil {
		return d.New(), nil
	}
	return d.Stream, nil
}
