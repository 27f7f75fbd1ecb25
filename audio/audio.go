// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Source is a pull-based PCM pipeline stage.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Sample is the element type a decoder stream produces: raw PCM bytes or
// float32 values.
type Sample interface {
	~byte | ~float32
}

// Stream is the decoder side of the streaming engine. Positions are counted
// in the unit the stream's Format implies: bytes per channel for byte
// formats, interleaved values for float formats.
type Stream interface {
	SampleRate() int
	Channels() int
	Format() Format
	// TotalSeconds is the playing time of the whole stream.
	TotalSeconds() float64
	// TotalSamples is the stream length in position units.
	TotalSamples() int64
	// SeekSample moves the read position to sample, in position units.
	SeekSample(sample int64) error
	// Flush rewinds the stream to its start.
	Flush() error
	Close() error
}

// SampleStream is a Stream that produces chunks of T. ReadSamples returns
// an empty slice once the stream is exhausted.
type SampleStream[T Sample] interface {
	Stream
	ReadSamples() ([]T, error)
}

// Decoder constructs a Stream from an input reader.
type Decoder interface {
	Decode(r io.ReadSeeker) (Stream, error)
}

// Registry maps file extensions (".mp3", ".ogg") to decoders.
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (r *Registry) Register(ext string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normalizeExt(ext)] = d
}

func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.Get(filepath.Ext(path))
	return ok
}

// Open validates the extension of path, opens the file and decodes it. The
// returned stream owns the file and closes it on Close.
func (r *Registry) Open(path string) (Stream, error) {
	ext := filepath.Ext(path)
	dec, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	stream, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return stream, nil
}
