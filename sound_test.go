// SPDX-License-Identifier: EPL-2.0

package audstream

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/device"
	"github.com/ik5/audstream/internal/audiotest"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/softal"
)

// one second of mono 16-bit audio at 32 Hz in 8 chunks
const clipRate = 32

var quiet = log.New(io.Discard)

type fixture struct {
	mgr  *device.Manager
	path string
	opts []Option

	mtx     sync.Mutex
	streams []*audiotest.Stream[byte]
}

func (f *fixture) clip() audio.Stream {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	chunks := audiotest.Chunks(8, 8, func(i int) byte { return byte(i) })
	s := audiotest.NewByteStream(audio.FormatMono16, clipRate, chunks...)
	f.streams = append(f.streams, s)
	return s
}

// last is the stream most recently opened.
func (f *fixture) last() *audiotest.Stream[byte] {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.streams[len(f.streams)-1]
}

func newFixture(t *testing.T, bt BufferType) *fixture {
	t.Helper()

	drv := softal.NewDriver(8000, softal.WithDefault("main"), softal.WithLogger(quiet))
	drv.Register("main", softal.NewCapture(nil))
	drv.Register("spare", softal.NewCapture(nil))
	mgr := device.NewManager(drv, device.WithLogger(quiet))
	require.NoError(t, mgr.Init(""))
	t.Cleanup(func() { mgr.Close() })

	f := &fixture{mgr: mgr}
	reg := audio.NewRegistry()
	reg.Register(".ogg", audiotest.Decoder{New: f.clip})

	f.path = filepath.Join(t.TempDir(), "clip.ogg")
	require.NoError(t, os.WriteFile(f.path, nil, 0o600))

	cfg := buffer.Config{
		BufferCount:    2,
		ByteChunkSize:  8,
		FloatChunkSize: 8,
		ChangingWait:   time.Millisecond,
		IdleWait:       time.Millisecond,
		RefillWait:     time.Millisecond,
	}
	f.opts = []Option{WithBufferType(bt), WithRegistry(reg), WithStreamConfig(cfg), WithLogger(quiet)}
	return f
}

func (f *fixture) sound(t *testing.T) *Sound {
	t.Helper()

	s, err := New(f.mgr, f.path, f.opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var bufferTypes = []BufferType{Stream, Full}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Stream)

	_, err := New(f.mgr, filepath.Join(filepath.Dir(f.path), "clip.wav"), f.opts...)
	assert.ErrorIs(t, err, audio.ErrUnsupportedExtension)

	_, err = New(f.mgr, filepath.Join(filepath.Dir(f.path), "gone.ogg"), f.opts...)
	assert.ErrorIs(t, err, audio.ErrNotFound)

	_, err = New(f.mgr, f.path, append(f.opts, WithBufferType(BufferType(9)))...)
	assert.ErrorIs(t, err, audio.ErrUnsupportedBuffer)
	assert.ErrorIs(t, err, audio.ErrConfiguration)

	require.NoError(t, f.mgr.Close())
	_, err = New(f.mgr, f.path, f.opts...)
	assert.ErrorIs(t, err, audio.ErrNotInitialized)
}

func TestSound_Transport(t *testing.T) {
	t.Parallel()

	for _, bt := range bufferTypes {
		t.Run(bt.String(), func(t *testing.T) {
			t.Parallel()

			s := newFixture(t, bt).sound(t)
			assert.NotEqual(t, [16]byte{}, [16]byte(s.ID()))
			assert.InDelta(t, 1.0, s.Length().TotalSeconds(), 1e-6)
			assert.Equal(t, native.Initial, s.State())

			require.NoError(t, s.Play())
			assert.Equal(t, native.Playing, s.State())
			require.NoError(t, s.Pause())
			assert.Equal(t, native.Paused, s.State())
			require.NoError(t, s.Reset())
			assert.Equal(t, native.Initial, s.State())

			require.NoError(t, s.SetLooping(true))
			assert.True(t, s.IsLooping())
			require.NoError(t, s.SetLooping(false))
			assert.False(t, s.IsLooping())
		})
	}
}

func TestSound_VolumeAndSpeed(t *testing.T) {
	t.Parallel()

	s := newFixture(t, Stream).sound(t)
	assert.InDelta(t, 100, s.Volume(), 1e-4)
	assert.InDelta(t, 1, s.Speed(), 1e-6)

	tests := []struct {
		name   string
		volume float32
		want   float32
	}{
		{"half", 50, 50},
		{"too loud", 250, 100},
		{"negative", -3, 0},
	}
	for _, tt := range tests {
		require.NoError(t, s.SetVolume(tt.volume), tt.name)
		assert.InDelta(t, tt.want, s.Volume(), 1e-4, tt.name)
	}

	speeds := []struct {
		set, want float32
	}{
		{1.5, 1.5},
		{4, MaxSpeed},
		{0.1, MinSpeed},
	}
	for _, sp := range speeds {
		require.NoError(t, s.SetSpeed(sp.set))
		assert.InDelta(t, sp.want, s.Speed(), 1e-6)
	}
}

func TestSound_SetPositionClamps(t *testing.T) {
	t.Parallel()

	for _, bt := range bufferTypes {
		t.Run(bt.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, bt)
			s := f.sound(t)

			require.NoError(t, s.SetPosition(0.5))
			assert.InDelta(t, 0.5, s.Position(), 1e-4)

			require.NoError(t, s.SetPosition(-2))
			assert.InDelta(t, 0, s.Position(), 1e-4)

			require.NoError(t, s.SetPosition(30))
			if bt == Full {
				assert.InDelta(t, s.Length().TotalSeconds(), s.Position(), 1e-4)
				return
			}
			// the streaming loop rewinds once the end is reached, so check
			// where the decoder was sent instead
			seeks := f.last().Seeks()
			require.Len(t, seeks, 3)
			assert.Equal(t, f.last().TotalSamples(), seeks[2])
		})
	}
}

func TestSound_Closed(t *testing.T) {
	t.Parallel()

	s := newFixture(t, Stream).sound(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Play(), audio.ErrDisposed)
	assert.ErrorIs(t, s.Pause(), audio.ErrDisposed)
	assert.ErrorIs(t, s.Reset(), audio.ErrDisposed)
	assert.ErrorIs(t, s.SetLooping(true), audio.ErrDisposed)
	assert.ErrorIs(t, s.SetVolume(10), audio.ErrDisposed)
	assert.ErrorIs(t, s.SetSpeed(1), audio.ErrDisposed)
	assert.ErrorIs(t, s.SetPosition(0.2), audio.ErrDisposed)
	assert.Equal(t, native.Stopped, s.State())
	assert.Zero(t, s.Position())
}

func TestSound_SurvivesDeviceChange(t *testing.T) {
	t.Parallel()

	for _, bt := range bufferTypes {
		t.Run(bt.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, bt)
			s := f.sound(t)

			require.NoError(t, s.SetVolume(50))
			require.NoError(t, s.SetSpeed(1.5))
			require.NoError(t, s.SetLooping(true))
			require.NoError(t, s.SetPosition(0.5))
			require.NoError(t, s.Play())
			old := s.buf.SourceID()

			require.NoError(t, f.mgr.Change("spare"))
			assert.Equal(t, "spare", f.mgr.Current())
			assert.NotZero(t, s.buf.SourceID())
			assert.NotEqual(t, old, s.buf.SourceID())

			// a command still addressed to the old source is dropped
			s.channels.Commands.Publish(buffer.Command{Source: old, Action: buffer.Pause})

			assert.Equal(t, native.Playing, s.State())
			assert.InDelta(t, 50, s.Volume(), 1e-4)
			assert.InDelta(t, 1.5, s.Speed(), 1e-6)
			assert.True(t, s.IsLooping())
			assert.InDelta(t, 0.5, s.Position(), 1e-3)
		})
	}
}

func TestSound_PausedSurvivesDeviceChange(t *testing.T) {
	t.Parallel()

	for _, bt := range bufferTypes {
		t.Run(bt.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, bt)
			s := f.sound(t)

			require.NoError(t, s.SetPosition(0.5))
			require.NoError(t, s.Play())
			require.NoError(t, s.Pause())
			require.Equal(t, native.Paused, s.State())

			require.NoError(t, f.mgr.Change("spare"))
			assert.Equal(t, native.Paused, s.State())
			assert.InDelta(t, 0.5, s.Position(), 1e-3)
		})
	}
}

func TestSound_IdleStaysIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Stream)
	s := f.sound(t)

	require.NoError(t, f.mgr.Change("spare"))
	assert.Equal(t, native.Initial, s.State())
}

func TestSound_IgnoresCallsWhileChanging(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Stream)
	s := f.sound(t)

	var during []error
	var state native.SourceState
	f.mgr.Changing().Subscribe(func(device.Change) {
		during = append(during, s.Play(), s.SetVolume(10), s.SetPosition(0.3))
		state = s.State()
	})

	require.NoError(t, f.mgr.Change("spare"))
	for _, err := range during {
		assert.NoError(t, err)
	}
	assert.Equal(t, native.Initial, state, "snapshot state is reported")
	assert.Equal(t, native.Initial, s.State(), "play was not applied")
	assert.InDelta(t, 100, s.Volume(), 1e-4)
}

func TestSound_RebuildFailureIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Stream)
	s := f.sound(t)

	var reported []error
	f.mgr.Errors().Subscribe(func(err error) { reported = append(reported, err) })

	// the file disappears while the device is being swapped
	require.NoError(t, os.Remove(f.path))
	require.NoError(t, f.mgr.Change("spare"))

	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], audio.ErrNotFound)
	assert.Zero(t, s.buf.SourceID())
	assert.NoError(t, s.Play(), "no source: nothing to do")
}

func TestParseBufferType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want BufferType
		err  bool
	}{
		{"stream", Stream, false},
		{"Full", Full, false},
		{"", Stream, false},
		{"ring", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBufferType(tt.in)
		if tt.err {
			assert.ErrorIs(t, err, audio.ErrUnsupportedBuffer, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
