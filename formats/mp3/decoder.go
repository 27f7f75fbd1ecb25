// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audstream/audio"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	channels      = 2
	bytesPerFrame = 4
)

// DefaultChunkSize is the number of bytes handed out per ReadSamples call.
const DefaultChunkSize = 16384

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

type stream struct {
	dec        mp3Reader
	closer     io.Closer
	sampleRate int
	length     int64 // decoded bytes, -1 when unknown
	buf        []byte
}

var _ audio.SampleStream[byte] = (*stream)(nil)

func newStream(dec mp3Reader, closer io.Closer, chunkSize int) *stream {
	chunkSize -= chunkSize % bytesPerFrame
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &stream{
		dec:        dec,
		closer:     closer,
		sampleRate: dec.SampleRate(),
		length:     dec.Length(),
		buf:        make([]byte, chunkSize),
	}
}

func (s *stream) SampleRate() int      { return s.sampleRate }
func (s *stream) Channels() int        { return channels }
func (s *stream) Format() audio.Format { return audio.FormatStereo16 }

// TotalSamples is the decoded length in bytes per channel.
func (s *stream) TotalSamples() int64 {
	if s.length < 0 {
		return 0
	}
	return s.length / channels
}

func (s *stream) TotalSeconds() float64 {
	if s.length < 0 || s.sampleRate == 0 {
		return 0
	}
	return float64(s.length) / bytesPerFrame / float64(s.sampleRate)
}

// ReadSamples returns the next chunk of PCM bytes. The slice is reused by
// the following call.
func (s *stream) ReadSamples() ([]byte, error) {
	n, err := io.ReadFull(s.dec, s.buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("mp3: read: %w", err)
	}
	return s.buf[:n], nil
}

// SeekSample moves to sample, counted in bytes per channel. The offset is
// aligned down to a whole frame.
func (s *stream) SeekSample(sample int64) error {
	offset := max(sample*channels, 0)
	offset -= offset % bytesPerFrame
	if s.length >= 0 && offset > s.length {
		offset = s.length - s.length%bytesPerFrame
	}
	if _, err := s.dec.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("mp3: seek to %d: %w", offset, err)
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

// Decoder opens MP3 streams. ChunkSize is the number of bytes per chunk,
// DefaultChunkSize when zero.
type Decoder struct {
	ChunkSize int
}

func (d Decoder) Decode(r io.ReadSeeker) (audio.Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}

	closer, _ := r.(io.Closer)
	return newStream(dec, closer, d.ChunkSize), nil
}
