// SPDX-License-Identifier: EPL-2.0

package audstream

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/bus"
	"github.com/ik5/audstream/device"
	"github.com/ik5/audstream/formats"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/timing"
)

const (
	MinSpeed float32 = 0.25
	MaxSpeed float32 = 2.0

	MaxVolume float32 = 100
)

// snapshot holds what a Sound restores after a device change.
type snapshot struct {
	state    native.SourceState
	volume   float32
	position float64
	speed    float32
	looping  bool
}

type options struct {
	bufferType BufferType
	registry   *audio.Registry
	stream     buffer.Config
	logger     *log.Logger
}

type Option func(*options)

func WithBufferType(t BufferType) Option {
	return func(o *options) { o.bufferType = t }
}

// WithRegistry replaces the bundled .mp3/.ogg decoders.
func WithRegistry(r *audio.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithStreamConfig tunes the streaming buffer. Full buffers ignore it.
func WithStreamConfig(cfg buffer.Config) Option {
	return func(o *options) { o.stream = cfg }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Sound plays one file on the device of a device.Manager. It keeps
// playing across device changes: the source is rebuilt on the new device
// and the volume, speed, position, loop flag and running state carried
// over.
type Sound struct {
	mtx *sync.Mutex

	id       uuid.UUID
	path     string
	mgr      *device.Manager
	buf      Buffer
	channels *buffer.Channels
	logger   *log.Logger
	length   timing.AudioTime

	subs   []*bus.Subscription
	snap   *snapshot
	closed bool
}

// New opens path and uploads it to the current device of mgr.
func New(mgr *device.Manager, path string, opts ...Option) (*Sound, error) {
	o := options{
		bufferType: Stream,
		stream:     buffer.DefaultConfig(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = formats.NewRegistry(o.stream.ByteChunkSize, o.stream.FloatChunkSize)
	}

	s := &Sound{
		mtx:      &sync.Mutex{},
		id:       uuid.New(),
		path:     path,
		mgr:      mgr,
		channels: buffer.NewChannels(),
	}
	s.logger = o.logger.With("sound", s.id.String())

	switch o.bufferType {
	case Stream:
		s.buf = buffer.NewStreaming(mgr, o.registry, s.channels,
			buffer.WithConfig(o.stream), buffer.WithLogger(s.logger))
	case Full:
		s.buf = buffer.NewFull(mgr, o.registry, s.channels, buffer.WithFullLogger(s.logger))
	default:
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedBuffer, o.bufferType)
	}

	if _, err := s.buf.Init(path); err != nil {
		s.buf.Dispose()
		return nil, err
	}
	if err := s.buf.Upload(); err != nil {
		s.buf.Dispose()
		return nil, err
	}
	s.length = timing.NewAudioTime(float32(s.buf.TotalSeconds()))

	s.subs = []*bus.Subscription{
		mgr.Changing().Subscribe(s.deviceChanging),
		mgr.Changed().Subscribe(s.deviceChanged),
	}

	s.logger.Debug("sound ready", "path", path, "length", s.length, "buffer", o.bufferType)
	return s, nil
}

func (s *Sound) ID() uuid.UUID { return s.id }
func (s *Sound) Path() string  { return s.path }

// Length is fixed when the sound is opened.
func (s *Sound) Length() timing.AudioTime { return s.length }

// live returns the context and source to act on. ok is false while the
// device is changing; err is set once the sound is closed.
func (s *Sound) live() (native.Context, native.SourceID, bool, error) {
	if s.closed {
		return nil, 0, false, audio.ErrDisposed
	}
	if s.snap != nil || s.mgr.State() == device.Changing {
		return nil, 0, false, nil
	}
	ctx := s.mgr.Context()
	id := s.buf.SourceID()
	if ctx == nil || id == 0 {
		return nil, 0, false, nil
	}
	return ctx, id, true, nil
}

func (s *Sound) send(a buffer.Action) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	_, id, ok, err := s.live()
	if !ok {
		return err
	}
	s.channels.Commands.Publish(buffer.Command{Source: id, Action: a})
	return nil
}

func (s *Sound) Play() error  { return s.send(buffer.Play) }
func (s *Sound) Pause() error { return s.send(buffer.Pause) }

// Reset stops playback and moves back to the start.
func (s *Sound) Reset() error { return s.send(buffer.Reset) }

func (s *Sound) SetLooping(looping bool) error {
	if looping {
		return s.send(buffer.EnableLoop)
	}
	return s.send(buffer.DisableLoop)
}

// IsLooping asks the buffer engine for its loop flag.
func (s *Sound) IsLooping() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.snap != nil {
		return s.snap.looping
	}
	_, id, ok, _ := s.live()
	if !ok {
		return false
	}
	looping, answered := s.channels.Looping.Ask(id)
	return answered && looping
}

// Volume is in [0, 100].
func (s *Sound) Volume() float32 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.snap != nil {
		return s.snap.volume
	}
	ctx, id, ok, _ := s.live()
	if !ok {
		return 0
	}
	gain, err := ctx.Gain(id)
	if err != nil {
		return 0
	}
	return gain * MaxVolume
}

// SetVolume clamps volume to [0, 100].
func (s *Sound) SetVolume(volume float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ctx, id, ok, err := s.live()
	if !ok {
		return err
	}
	volume = min(max(volume, 0), MaxVolume)
	return ctx.SetGain(id, volume/MaxVolume)
}

// Speed is the playback rate, 1 being normal.
func (s *Sound) Speed() float32 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.snap != nil {
		return s.snap.speed
	}
	ctx, id, ok, _ := s.live()
	if !ok {
		return 0
	}
	pitch, err := ctx.Pitch(id)
	if err != nil {
		return 0
	}
	return pitch
}

// SetSpeed clamps speed to [MinSpeed, MaxSpeed].
func (s *Sound) SetSpeed(speed float32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ctx, id, ok, err := s.live()
	if !ok {
		return err
	}
	return ctx.SetPitch(id, min(max(speed, MinSpeed), MaxSpeed))
}

// Position is the playing offset in seconds.
func (s *Sound) Position() float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.snap != nil {
		return max(s.snap.position, 0)
	}
	if _, _, ok, _ := s.live(); !ok {
		return 0
	}
	return s.buf.Position()
}

// SetPosition seeks to seconds, clamped to the length of the sound.
func (s *Sound) SetPosition(seconds float64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	_, id, ok, err := s.live()
	if !ok {
		return err
	}
	s.channels.Seeks.Publish(buffer.SeekCommand{
		Source:  id,
		Seconds: timing.Clamp(seconds, float64(s.length.TotalSeconds())),
	})
	return nil
}

// State of the native source. A closed sound reports Stopped.
func (s *Sound) State() native.SourceState {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.snap != nil {
		return s.snap.state
	}
	ctx, id, ok, _ := s.live()
	if !ok {
		return native.Stopped
	}
	state, err := ctx.SourceState(id)
	if err != nil {
		return native.Stopped
	}
	return state
}

// deviceChanging records the playback state through the context being
// released and then releases the source.
func (s *Sound) deviceChanging(change device.Change) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return
	}

	snap := &snapshot{state: native.Stopped, volume: -1, position: -1, speed: -1}
	if ctx, id := change.Context, s.buf.SourceID(); ctx != nil && id != 0 {
		if state, err := ctx.SourceState(id); err == nil {
			snap.state = state
		}
		if gain, err := ctx.Gain(id); err == nil {
			snap.volume = gain * MaxVolume
		}
		if pitch, err := ctx.Pitch(id); err == nil {
			snap.speed = pitch
		}
		snap.position = s.buf.Position()
		snap.looping = s.buf.IsLooping()

		if snap.state != native.Stopped {
			if err := ctx.Stop(id); err != nil {
				s.logger.Warn("stopping before device change", "err", err)
			}
		}
	}
	s.snap = snap

	if err := s.buf.RemoveBuffer(); err != nil {
		s.logger.Warn("releasing before device change", "err", err)
	}
	s.logger.Debug("device changing", "to", change.To, "state", snap.state, "position", snap.position)
}

// deviceChanged rebuilds the source on the new device and restores the
// snapshot.
func (s *Sound) deviceChanged(change device.Change) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	snap := s.snap
	s.snap = nil
	if s.closed || snap == nil {
		return
	}

	if err := s.rebuild(snap); err != nil {
		s.mgr.ReportError(fmt.Errorf("sound %s on %q: %w", s.id, change.To, err))
		return
	}
	s.logger.Debug("device changed", "device", change.To, "source", s.buf.SourceID())
}

func (s *Sound) rebuild(snap *snapshot) error {
	id, err := s.buf.Init(s.path)
	if err != nil {
		return err
	}
	if err := s.buf.Upload(); err != nil {
		return err
	}

	ctx := s.mgr.Context()
	if ctx == nil {
		return fmt.Errorf("rebuild: %w", audio.ErrNotInitialized)
	}
	if snap.volume >= 0 {
		if err := ctx.SetGain(id, snap.volume/MaxVolume); err != nil {
			return err
		}
	}
	if snap.speed >= 0 {
		if err := ctx.SetPitch(id, snap.speed); err != nil {
			return err
		}
	}
	if snap.looping {
		s.channels.Commands.Publish(buffer.Command{Source: id, Action: buffer.EnableLoop})
	}
	if snap.position > 0 {
		s.channels.Seeks.Publish(buffer.SeekCommand{
			Source:  id,
			Seconds: timing.Clamp(snap.position, float64(s.length.TotalSeconds())),
		})
	}
	switch snap.state {
	case native.Playing:
		s.channels.Commands.Publish(buffer.Command{Source: id, Action: buffer.Play})
	case native.Paused:
		s.channels.Commands.Publish(buffer.Command{Source: id, Action: buffer.Play})
		s.channels.Commands.Publish(buffer.Command{Source: id, Action: buffer.Pause})
	}
	return nil
}

// Close stops the sound and releases its source. Every later call fails
// with audio.ErrDisposed.
func (s *Sound) Close() error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mtx.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if err := s.buf.Dispose(); err != nil {
		return fmt.Errorf("close sound: %w", err)
	}
	s.logger.Debug("sound closed")
	return nil
}
