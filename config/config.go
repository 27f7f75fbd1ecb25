// SPDX-License-Identifier: EPL-2.0

// Package config loads the YAML settings of the audstream command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/ik5/audstream"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/softal"
)

type Config struct {
	// Device is the output to open, empty for the driver default.
	Device string `yaml:"device,omitempty"`

	// BufferType is "stream" or "full".
	BufferType string `yaml:"buffer_type"`

	Stream StreamConfig `yaml:"stream"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// StreamConfig sizes the streaming buffer ring and paces its refills.
type StreamConfig struct {
	BufferCount    int           `yaml:"buffer_count"`
	ByteChunkSize  int           `yaml:"byte_chunk_size"`
	FloatChunkSize int           `yaml:"float_chunk_size"`
	ChangingWait   time.Duration `yaml:"changing_wait"`
	IdleWait       time.Duration `yaml:"idle_wait"`
	RefillWait     time.Duration `yaml:"refill_wait"`
}

type OutputConfig struct {
	SampleRate int `yaml:"sample_rate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	b := buffer.DefaultConfig()
	return &Config{
		BufferType: audstream.Stream.String(),
		Stream: StreamConfig{
			BufferCount:    b.BufferCount,
			ByteChunkSize:  b.ByteChunkSize,
			FloatChunkSize: b.FloatChunkSize,
			ChangingWait:   b.ChangingWait,
			IdleWait:       b.IdleWait,
			RefillWait:     b.RefillWait,
		},
		Output: OutputConfig{SampleRate: softal.DefaultSampleRate},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", audio.ErrConfiguration, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{audio.ErrConfiguration}, args...)...))
	}

	if _, err := audstream.ParseBufferType(c.BufferType); err != nil {
		errs = append(errs, err)
	}

	s := c.Stream
	if s.BufferCount < 2 {
		bad("stream.buffer_count %d: at least 2 buffers are needed", s.BufferCount)
	}
	// one stereo 16-bit frame is 4 bytes
	if s.ByteChunkSize <= 0 || s.ByteChunkSize%4 != 0 {
		bad("stream.byte_chunk_size %d: must be a positive multiple of 4", s.ByteChunkSize)
	}
	if s.FloatChunkSize <= 0 || s.FloatChunkSize%2 != 0 {
		bad("stream.float_chunk_size %d: must be a positive even number", s.FloatChunkSize)
	}
	if s.ChangingWait < 0 || s.IdleWait < 0 || s.RefillWait < 0 {
		bad("stream waits must not be negative")
	}

	if c.Output.SampleRate <= 0 {
		bad("output.sample_rate %d", c.Output.SampleRate)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		bad("log.level %q", c.Log.Level)
	}
	if _, ok := formatters[strings.ToLower(c.Log.Format)]; !ok {
		bad("log.format %q", c.Log.Format)
	}
	return errors.Join(errs...)
}

// Buffer converts the stream settings for the buffer package.
func (s StreamConfig) Buffer() buffer.Config {
	return buffer.Config{
		BufferCount:    s.BufferCount,
		ByteChunkSize:  s.ByteChunkSize,
		FloatChunkSize: s.FloatChunkSize,
		ChangingWait:   s.ChangingWait,
		IdleWait:       s.IdleWait,
		RefillWait:     s.RefillWait,
	}
}

// SoundOptions turns the configuration into options for audstream.New.
func (c *Config) SoundOptions() ([]audstream.Option, error) {
	bt, err := audstream.ParseBufferType(c.BufferType)
	if err != nil {
		return nil, err
	}
	return []audstream.Option{
		audstream.WithBufferType(bt),
		audstream.WithStreamConfig(c.Stream.Buffer()),
	}, nil
}

var formatters = map[string]log.Formatter{
	"":       log.TextFormatter,
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// NewLogger builds a logger writing to w.
func NewLogger(w io.Writer, cfg LogConfig) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %w", audio.ErrConfiguration, err)
	}
	formatter, ok := formatters[strings.ToLower(cfg.Format)]
	if !ok {
		return nil, fmt.Errorf("%w: log format %q", audio.ErrConfiguration, cfg.Format)
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}), nil
}
