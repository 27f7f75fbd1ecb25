// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/config"
	"github.com/ik5/audstream/internal/audiotest"
	"github.com/ik5/audstream/softal"
)

// syncBuffer collects log lines written from several goroutines.
type syncBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

type result struct {
	err    error
	stdout string
	stderr string
}

// execute runs the command tree with a configuration file in a temporary
// directory unless args name one.
func execute(t *testing.T, opts []Option, args ...string) result {
	t.Helper()

	root := NewRootCommand(opts...)
	var stdout, stderr syncBuffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))

	err := root.Execute()
	return result{err: err, stdout: stdout.String(), stderr: stderr.String()}
}

// clip registers a fake ".ogg" decoder producing samples 16-bit mono
// samples at 32 Hz, and returns a file it accepts.
func clip(t *testing.T, samples int) (Option, string) {
	t.Helper()

	reg := audio.NewRegistry()
	reg.Register(".ogg", audiotest.Decoder{New: func() audio.Stream {
		chunks := audiotest.Chunks(samples/4, 8, func(i int) byte { return byte(i * 16) })
		return audiotest.NewByteStream(audio.FormatMono16, 32, chunks...)
	}})

	path := filepath.Join(t.TempDir(), "clip.ogg")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return WithRegistry(reg), path
}

func TestDevices(t *testing.T) {
	t.Parallel()

	r := execute(t, []Option{WithOutput("spare", softal.NewNull(time.Millisecond))}, "devices")
	require.NoError(t, r.err)
	for _, want := range []string{"DEVICE", "null", "capture", "spare", "*"} {
		assert.Contains(t, r.stdout, want)
	}
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audstream.yaml")

	r := execute(t, nil, "config", "init", path)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	r = execute(t, nil, "config", "init", path)
	assert.ErrorIs(t, r.err, ErrConfigExists)

	r = execute(t, nil, "config", "init", "--force", path)
	assert.NoError(t, r.err)
}

func TestConfigShow_FileAndFlags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audstream.yaml")
	cfg := config.Default()
	cfg.Output.SampleRate = 22050
	cfg.BufferType = "full"
	require.NoError(t, config.Save(path, cfg))

	r := execute(t, nil, "--config", path, "--device", "spare", "--log-level", "debug", "config", "show")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "sample_rate: 22050")
	assert.Contains(t, r.stdout, "buffer_type: full")
	assert.Contains(t, r.stdout, "device: spare")
	assert.Contains(t, r.stdout, "level: debug")
}

func TestConfigShow_Environment(t *testing.T) {
	t.Setenv("AUDSTREAM_BUFFER_TYPE", "full")
	t.Setenv("AUDSTREAM_SAMPLE_RATE", "8000")

	r := execute(t, nil, "--log-format", "json", "config", "show")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "buffer_type: full")
	assert.Contains(t, r.stdout, "sample_rate: 8000")
	assert.Contains(t, r.stdout, "format: json")
}

func TestSetup_RejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"buffer type", []string{"--buffer-type", "ring"}, audio.ErrUnsupportedBuffer},
		{"sample rate", []string{"--sample-rate", "-1"}, audio.ErrConfiguration},
		{"log level", []string{"--log-level", "loud"}, audio.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := execute(t, nil, append(tt.args, "devices")...)
			assert.ErrorIs(t, r.err, tt.want)
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	withClip, path := clip(t, 32)
	out := filepath.Join(t.TempDir(), "clip.wav")

	r := execute(t, []Option{withClip},
		"--sample-rate", "8000", "render", path, "--out", out, "--rate", "8000")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "rendered")

	in, err := os.Open(out)
	require.NoError(t, err)
	defer in.Close()

	buf, err := gowav.NewDecoder(in).FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	// one second of audio, mixed in pulls of 1024 frames
	assert.GreaterOrEqual(t, len(buf.Data), 7800)
	assert.LessOrEqual(t, len(buf.Data), 9300)
}

func TestPlay_ToTheEnd(t *testing.T) {
	t.Parallel()

	for _, bt := range []string{"stream", "full"} {
		t.Run(bt, func(t *testing.T) {
			t.Parallel()

			withClip, path := clip(t, 8)
			r := execute(t, []Option{withClip},
				"--device", "null", "--buffer-type", bt, "--sample-rate", "8000",
				"play", path, "--duration", "5s", "--volume", "50")
			require.NoError(t, r.err)
			assert.Contains(t, r.stderr, "finished")
		})
	}
}

// audible reports whether anything but silence reached the output.
type audible struct {
	softal.Renderer
	heard *atomic.Bool
}

func (a audible) Mix(dst []float32) {
	a.Renderer.Mix(dst)
	for _, v := range dst {
		if v != 0 {
			a.heard.Store(true)
			return
		}
	}
}

type listeningOutput struct {
	softal.Output
	heard *atomic.Bool
}

func (o listeningOutput) Attach(r softal.Renderer) error {
	return o.Output.Attach(audible{Renderer: r, heard: o.heard})
}

func listening(fn softal.OutputFunc, heard *atomic.Bool) softal.OutputFunc {
	return func(rate int) (softal.Output, error) {
		out, err := fn(rate)
		if err != nil {
			return nil, err
		}
		return listeningOutput{Output: out, heard: heard}, nil
	}
}

func TestPlay_SwitchesDevice(t *testing.T) {
	t.Parallel()

	var heard atomic.Bool
	spare := listening(softal.NewNull(5*time.Millisecond), &heard)
	withClip, path := clip(t, 32)
	r := execute(t, []Option{withClip, WithOutput("spare", spare)},
		"--device", "null", "--sample-rate", "8000",
		"play", path, "--loop", "--duration", "400ms",
		"--switch-to", "spare", "--switch-after", "50ms")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "switching device")
	assert.Contains(t, r.stderr, "device changed")
	assert.NotContains(t, r.stderr, "finished", "a looping sound plays until stopped")
	assert.True(t, heard.Load(), "playback carries on on the new device")
}

func TestPlay_MissingFile(t *testing.T) {
	t.Parallel()

	withClip, path := clip(t, 8)
	r := execute(t, []Option{withClip}, "--device", "null", "play", path+".gone.ogg")
	assert.ErrorIs(t, r.err, audio.ErrNotFound)
}
