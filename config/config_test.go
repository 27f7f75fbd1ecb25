// SPDX-License-Identifier: EPL-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, buffer.DefaultConfig(), cfg.Stream.Buffer())
	assert.Equal(t, "stream", cfg.BufferType)
	assert.Equal(t, 44100, cfg.Output.SampleRate)

	opts, err := cfg.SoundOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audstream.yaml")
	data := `
device: spare
buffer_type: full
stream:
  buffer_count: 6
  refill_wait: 40ms
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spare", cfg.Device)
	assert.Equal(t, "full", cfg.BufferType)
	assert.Equal(t, 6, cfg.Stream.BufferCount)
	assert.Equal(t, 40*time.Millisecond, cfg.Stream.RefillWait)
	assert.Equal(t, 16384, cfg.Stream.ByteChunkSize, "unset keys keep their default")
	assert.Equal(t, "text", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream: [1, 2"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, audio.ErrConfiguration)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Device = "capture"
	cfg.Stream.IdleWait = 250 * time.Millisecond
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "idle_wait: 250ms")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"buffer type", func(c *Config) { c.BufferType = "ring" }, "unsupported buffer type"},
		{"buffer count", func(c *Config) { c.Stream.BufferCount = 1 }, "buffer_count"},
		{"byte chunk", func(c *Config) { c.Stream.ByteChunkSize = 1001 }, "byte_chunk_size"},
		{"float chunk", func(c *Config) { c.Stream.FloatChunkSize = 0 }, "float_chunk_size"},
		{"waits", func(c *Config) { c.Stream.IdleWait = -time.Second }, "waits"},
		{"sample rate", func(c *Config) { c.Output.SampleRate = 0 }, "sample_rate"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, audio.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, l.GetLevel())

	l.Info("hidden")
	l.Warn("shown", "device", "null")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"device":"null"`)

	_, err = NewLogger(&buf, LogConfig{Level: "info", Format: "xml"})
	assert.ErrorIs(t, err, audio.ErrConfiguration)
	_, err = NewLogger(&buf, LogConfig{Level: "chatty"})
	assert.ErrorIs(t, err, audio.ErrConfiguration)
}
