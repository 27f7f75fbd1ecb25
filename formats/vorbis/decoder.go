// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream/audio"
	"github.com/jfreymuth/oggvorbis"
)

// DefaultChunkSize is the number of float32 values handed out per
// ReadSamples call.
const DefaultChunkSize = 8192

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	// Read returns the number of interleaved values written.
	Read([]float32) (int, error)
	// Length is the stream length in frames.
	Length() int64
	SetPosition(frame int64) error
}

type stream struct {
	dec        oggReader
	closer     io.Closer
	sampleRate int
	channels   int
	format     audio.Format
	buf        []float32
}

var _ audio.SampleStream[float32] = (*stream)(nil)

func newStream(dec oggReader, closer io.Closer, chunkSize int) (*stream, error) {
	channels := dec.Channels()
	format, err := audio.FloatFormat(channels)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}

	chunkSize -= chunkSize % channels
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &stream{
		dec:        dec,
		closer:     closer,
		sampleRate: dec.SampleRate(),
		channels:   channels,
		format:     format,
		buf:        make([]float32, chunkSize),
	}, nil
}

func (s *stream) SampleRate() int      { return s.sampleRate }
func (s *stream) Channels() int        { return s.channels }
func (s *stream) Format() audio.Format { return s.format }

// TotalSamples is the length in interleaved values.
func (s *stream) TotalSamples() int64 {
	return s.dec.Length() * int64(s.channels)
}

func (s *stream) TotalSeconds() float64 {
	if s.sampleRate == 0 {
		return 0
	}
	return float64(s.dec.Length()) / float64(s.sampleRate)
}

// ReadSamples returns the next chunk of interleaved samples. The slice is
// reused by the following call.
func (s *stream) ReadSamples() ([]float32, error) {
	n := 0
	for n < len(s.buf) {
		read, err := s.dec.Read(s.buf[n:])
		n += read
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vorbis: read: %w", err)
		}
		if read == 0 {
			break
		}
	}
	return s.buf[:n], nil
}

// SeekSample moves to sample, counted in interleaved values.
func (s *stream) SeekSample(sample int64) error {
	frame := max(sample, 0) / int64(s.channels)
	if length := s.dec.Length(); frame > length {
		frame = length
	}
	if err := s.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis: seek to frame %d: %w", frame, err)
	}
	return nil
}

func (s *stream) Flush() error { return s.SeekSample(0) }

func (s *stream) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Decoder opens Ogg Vorbis streams. ChunkSize is the number of values per
// chunk, DefaultChunkSize when zero. Only mono and stereo files are
// accepted.
type Decoder struct {
	ChunkSize int
}

func (d Decoder) Decode(r io.ReadSeeker) (audio.Stream, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}

	closer, _ := r.(io.Closer)
	s, err := newStream(dec, closer, d.ChunkSize)
	if err != nil {
		return nil, err
	}
	return s, nil
}
