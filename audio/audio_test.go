// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// stubStream is the smallest Stream a decoder can hand back.
type stubStream struct {
	closer io.Closer
}

func (s *stubStream) SampleRate() int        { return 44100 }
func (s *stubStream) Channels() int          { return 2 }
func (s *stubStream) Format() Format         { return FormatStereo16 }
func (s *stubStream) TotalSeconds() float64  { return 1 }
func (s *stubStream) TotalSamples() int64    { return 88200 }
func (s *stubStream) SeekSample(int64) error { return nil }
func (s *stubStream) Flush() error           { return nil }
func (s *stubStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

type mockDecoder struct {
	name string
}

func (d *mockDecoder) Decode(r io.ReadSeeker) (Stream, error) {
	c, _ := r.(io.Closer)
	return &stubStream{closer: c}, nil
}

type failingDecoder struct{}

func (failingDecoder) Decode(io.ReadSeeker) (Stream, error) {
	return nil, errors.New("decode failed")
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &mockDecoder{name: "mp3"}

	registry.Register(".mp3", decoder)

	got, ok := registry.Get(".mp3")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered decoder")
	}
	if got != decoder {
		t.Error("Registry.Get() returned different decoder instance")
	}
}

func TestRegistry_NormalizesExtension(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &mockDecoder{name: "ogg"}
	registry.Register("ogg", decoder)

	for _, ext := range []string{"ogg", ".ogg", ".OGG", "OgG"} {
		t.Run(ext, func(t *testing.T) {
			got, ok := registry.Get(ext)
			if !ok || got != decoder {
				t.Errorf("Registry.Get(%q) = %v, %v; want registered decoder", ext, got, ok)
			}
		})
	}
}

func TestRegistry_Extensions(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(".ogg", &mockDecoder{})
	registry.Register(".mp3", &mockDecoder{})

	got := registry.Extensions()
	if len(got) != 2 || got[0] != ".mp3" || got[1] != ".ogg" {
		t.Errorf("Extensions() = %v, want [.mp3 .ogg]", got)
	}
	if !registry.Supports("/music/song.MP3") {
		t.Error("Supports() = false for .MP3")
	}
	if registry.Supports("/music/song.wav") {
		t.Error("Supports() = true for .wav")
	}
}

func TestRegistry_OpenUnsupportedExtension(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(".mp3", &mockDecoder{})

	_, err := registry.Open("song.flac")
	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedExtension", err)
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Open() error = %v, want it to be a configuration error", err)
	}
}

func TestRegistry_OpenMissingFile(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(".mp3", &mockDecoder{})

	_, err := registry.Open(filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, ErrFileNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrFileNotFound", err)
	}
}

func TestRegistry_OpenDecodes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	registry.Register(".mp3", &mockDecoder{})

	stream, err := registry.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if stream.Format() != FormatStereo16 {
		t.Errorf("Format() = %v, want stereo16", stream.Format())
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRegistry_OpenDecodeFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.ogg")
	if err := os.WriteFile(path, []byte("not ogg"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	registry.Register(".ogg", failingDecoder{})

	if _, err := registry.Open(path); err == nil {
		t.Fatal("Open() error = nil, want decode failure")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &mockDecoder{name: "test"}

	done := make(chan bool)
	for range 10 {
		go func() {
			registry.Register(".mp3", decoder)
			done <- true
		}()
	}
	for range 10 {
		go func() {
			_, _ = registry.Get(".mp3")
			done <- true
		}()
	}
	for range 20 {
		<-done
	}

	got, ok := registry.Get(".mp3")
	if !ok || got != decoder {
		t.Error("Registry returned wrong decoder after concurrent operations")
	}
}
